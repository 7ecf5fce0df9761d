package shell

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/license"
	"github.com/darshandkd/f5-license-management-tool-cli-sub000/internal/store"
)

// RenderTable writes the fleet as an aligned text table. Registration
// keys are masked; the full key only leaves the store via export.
func RenderTable(w io.Writer, records []store.DeviceRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IP\tSTATUS\tDAYS\tEXPIRES\tREGKEY\tCHECKED")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.IP,
			rec.Status,
			daysCell(rec),
			orDash(rec.Expires),
			orDash(license.MaskRegKey(rec.RegKey)),
			orDash(rec.Checked))
	}
	tw.Flush()
}

// RenderDetail writes one device's full record as label/value lines.
func RenderDetail(w io.Writer, rec store.DeviceRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ip:\t%s\n", rec.IP)
	fmt.Fprintf(tw, "status:\t%s\n", rec.Status)
	fmt.Fprintf(tw, "days:\t%s\n", daysCell(rec))
	fmt.Fprintf(tw, "expires:\t%s\n", orDash(rec.Expires))
	fmt.Fprintf(tw, "regkey:\t%s\n", orDash(license.MaskRegKey(rec.RegKey)))
	fmt.Fprintf(tw, "auth type:\t%s\n", orDash(rec.AuthType))
	fmt.Fprintf(tw, "added:\t%s\n", orDash(rec.Added))
	fmt.Fprintf(tw, "checked:\t%s\n", orDash(rec.Checked))
	fmt.Fprintf(tw, "service check date:\t%s\n", orDash(rec.SvcCheckDate))
	tw.Flush()
}

// daysCell renders the countdown; a never-checked record shows a dash
// instead of the unknown sentinel.
func daysCell(rec store.DeviceRecord) string {
	if rec.Status == license.StatusNew {
		return "-"
	}
	return license.FormatDays(rec.Days)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
