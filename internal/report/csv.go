package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/ironsheep/parkscan/internal/occupancy"
	"github.com/ironsheep/parkscan/internal/pipeline"
)

var summaryHeader = []string{"Total Number of Slots", "Occupied Slots", "Available Slots", "Occupancy Rate"}

var slotsHeader = []string{"slot_id", "x", "y", "w", "h", "status"}

// WriteSummaryCSV writes the header row and one data row. The rate is a
// percentage with two decimals.
func WriteSummaryCSV(w io.Writer, s occupancy.Summary) error {
	cw := csv.NewWriter(w)
	records := [][]string{
		summaryHeader,
		{
			strconv.Itoa(s.Total),
			strconv.Itoa(s.Occupied),
			strconv.Itoa(s.Available),
			strconv.FormatFloat(s.OccupancyRatePercent, 'f', 2, 64),
		},
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write summary csv: %w", err)
	}
	return nil
}

// WriteSlotsCSV writes one row per slot in result order.
func WriteSlotsCSV(w io.Writer, slots []pipeline.Slot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(slotsHeader); err != nil {
		return fmt.Errorf("failed to write slots csv: %w", err)
	}
	for _, s := range slots {
		row := []string{
			strconv.Itoa(s.ID),
			strconv.Itoa(s.X),
			strconv.Itoa(s.Y),
			strconv.Itoa(s.W),
			strconv.Itoa(s.H),
			string(s.Status),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write slots csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write slots csv: %w", err)
	}
	return nil
}
