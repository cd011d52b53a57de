package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heritagepubs/pubsync/internal/geo"
	"github.com/heritagepubs/pubsync/internal/model"
	"github.com/heritagepubs/pubsync/internal/store"
)

var coordsCSVPath string

var coordsCmd = &cobra.Command{
	Use:   "coords",
	Short: "Fill missing coordinates from a CSV file",
	Long:  "Reads a CSV with catalog_id, latitude, longitude columns and fills coordinates on entries that have none. Stored coordinates are never overwritten.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		snapshot, err := st.ListPubs(ctx)
		if err != nil {
			return eris.Wrap(err, "list pubs")
		}
		byID := make(map[string]*model.Pub, len(snapshot))
		for i := range snapshot {
			byID[snapshot[i].CatalogID] = &snapshot[i]
		}

		f, err := os.Open(coordsCSVPath)
		if err != nil {
			return eris.Wrapf(err, "open csv %s", coordsCSVPath)
		}
		defer f.Close()

		filled, skipped, err := importCoords(ctx, st, byID, f)
		if err != nil {
			return err
		}

		zap.L().Info("coordinate import complete",
			zap.String("csv", coordsCSVPath),
			zap.Int("filled", filled),
			zap.Int("skipped", skipped),
		)
		return nil
	},
}

// importCoords applies fill-once coordinate rows to the catalog. Entries
// already holding a coordinate keep it, including entries filled by an
// earlier row of the same file.
func importCoords(ctx context.Context, st store.Store, byID map[string]*model.Pub, r io.Reader) (filled, skipped int, err error) {
	log := zap.L()

	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return 0, 0, eris.Wrap(err, "read csv header")
	}
	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"catalog_id", "latitude", "longitude"} {
		if _, ok := col[required]; !ok {
			return 0, 0, eris.Errorf("csv missing %s column", required)
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return filled, skipped, eris.Wrap(err, "read csv row")
		}

		id := row[col["catalog_id"]]
		p, ok := byID[id]
		if !ok {
			skipped++
			log.Warn("unknown catalog id", zap.String("catalog_id", id))
			continue
		}

		lat, latErr := strconv.ParseFloat(row[col["latitude"]], 64)
		lng, lngErr := strconv.ParseFloat(row[col["longitude"]], 64)
		if latErr != nil || lngErr != nil {
			skipped++
			log.Warn("invalid coordinates, row skipped", zap.String("catalog_id", id))
			continue
		}
		if !geo.Plausible(lat, lng) {
			log.Warn("coordinates outside coverage area",
				zap.String("catalog_id", id), zap.Float64("lat", lat), zap.Float64("lng", lng))
		}

		fields := map[string]any{}
		if p.Latitude == nil {
			fields["latitude"] = lat
		}
		if p.Longitude == nil {
			fields["longitude"] = lng
		}
		if len(fields) == 0 {
			skipped++
			continue
		}

		if err := st.UpdatePub(ctx, id, fields); err != nil {
			skipped++
			log.Error("update failed", zap.String("catalog_id", id), zap.Error(err))
			continue
		}
		// Keep the in-memory entry current so a later row for the same
		// catalog ID cannot overwrite this fill.
		if _, ok := fields["latitude"]; ok {
			p.Latitude = &lat
		}
		if _, ok := fields["longitude"]; ok {
			p.Longitude = &lng
		}
		filled++
	}
	return filled, skipped, nil
}

func init() {
	coordsCmd.Flags().StringVar(&coordsCSVPath, "csv", "", "path to CSV file (required)")
	_ = coordsCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(coordsCmd)
}
