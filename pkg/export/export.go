// Package export renders booking history records for offline analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/evgrid/chargeq/core/model"
)

// WriteJSON writes the booking records to w in JSON format.
func WriteJSON(w io.Writer, bookings []model.Booking) error {
	enc := json.NewEncoder(w)
	return enc.Encode(bookings)
}

// WriteCSV writes the booking records to w in CSV format, one row per record.
func WriteCSV(w io.Writer, bookings []model.Booking) error {
	cw := csv.NewWriter(w)
	header := []string{"booking_id", "requester_id", "station_id", "slot_id", "date", "start", "end", "level", "soc_percent", "status", "created_at"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, b := range bookings {
		rec := []string{
			b.ID,
			b.Request.RequesterID,
			b.Slot.StationID,
			b.Slot.SlotID,
			b.Slot.Date,
			b.Slot.Window.Start.String(),
			b.Slot.Window.End.String(),
			string(b.Slot.Level),
			strconv.Itoa(b.Request.SoC),
			string(b.Status),
			b.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
