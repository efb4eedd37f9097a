package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/flightschool-cms/internal/client/models"
)

const quoteWidth = 40

func recordOf(v any) models.Record {
	switch r := v.(type) {
	case models.Aircraft:
		return r.Record
	case models.Instructor:
		return r.Record
	case models.Course:
		return r.Record
	case models.Testimonial:
		return r.Record
	}
	return models.Record{}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// writeTable renders a collection of view models as aligned columns.
func writeTable(w io.Writer, data any) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	switch rows := data.(type) {
	case []models.Aircraft:
		fmt.Fprintln(tw, "ID\tNAME\tMODEL\tCATEGORY\tSEATS\tACTIVE")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", r.Key(), r.Name, r.Model, r.Category, r.Seats, yesNo(r.IsActive))
		}
	case []models.Instructor:
		fmt.Fprintln(tw, "ID\tNAME\tTITLE\tEXPERIENCE\tACTIVE")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Key(), r.Name, r.Title, r.Experience, yesNo(r.IsActive))
		}
	case []models.Course:
		fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tDURATION\tINSTRUCTOR")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Key(), r.Title, r.Category, r.Duration, r.Instructor.Name)
		}
	case []models.Testimonial:
		fmt.Fprintln(tw, "ID\tAUTHOR\tRATING\tPUBLISHED\tQUOTE")
		for _, r := range rows {
			rating := "-"
			if r.Rating > 0 {
				rating = strconv.Itoa(r.Rating)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Key(), r.AuthorName, rating, yesNo(r.Published), truncate(r.Quote, quoteWidth))
		}
	default:
		return fmt.Errorf("cannot render %T", data)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
