package model

import (
	"fmt"
	"strings"
	"time"
)

// TierTransition records a promotion to or demotion from the top tier.
type TierTransition struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// OpenTransition records a top-tier pub opening or closing.
type OpenTransition struct {
	From bool `json:"from"`
	To   bool `json:"to"`
}

// ChangeRecord is one append-only audit entry describing a real update to a
// catalog entry. No ChangeRecord is produced for no-op merges.
type ChangeRecord struct {
	ID        int64           `json:"id,omitempty"`
	CatalogID string          `json:"catalog_id"`
	Name      string          `json:"name"`
	Address   string          `json:"address"`
	Fields    []string        `json:"fields"`
	Tier      *TierTransition `json:"tier_transition,omitempty"`
	Open      *OpenTransition `json:"open_transition,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Lines renders the human-readable audit lines for this change, in the
// wording operators are used to from the import logs. Routine field updates
// produce no line; only tier and open transitions are log-worthy.
func (c *ChangeRecord) Lines() []string {
	var out []string
	if c.Tier != nil {
		if c.Tier.From == TierTop && c.Tier.To != TierTop {
			out = append(out, fmt.Sprintf("Demoted from Three-Star: %s, Address: %s", c.Name, c.Address))
		} else if c.Tier.From != TierTop && c.Tier.To == TierTop {
			out = append(out, fmt.Sprintf("Promoted to Three-Star: %s, Address: %s", c.Name, c.Address))
		}
	}
	if c.Open != nil {
		status := "closed"
		if c.Open.To {
			status = "opened"
		}
		out = append(out, fmt.Sprintf("Three star %s: %s, Address: %s", status, c.Name, c.Address))
	}
	return out
}

// Summary is a one-line rendering of the dirty field set for listings.
func (c *ChangeRecord) Summary() string {
	return strings.Join(c.Fields, ", ")
}
