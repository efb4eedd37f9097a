package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/flightschool-cms/internal/client/models"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/query"
)

func usage(s string) error {
	return fmt.Errorf("usage: %s", s)
}

func kindAndID(args []string, syntax string) (models.Kind, models.ID, error) {
	if len(args) != 2 {
		return "", "", usage(syntax)
	}
	kind, err := models.ParseKind(args[0])
	if err != nil {
		return "", "", err
	}
	return kind, models.ID(args[1]), nil
}

// List prints the records of a kind, optionally filtered by field=value pairs.
func (a *App) List(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("list <kind> [field=value...]")
	}
	kind, err := models.ParseKind(args[0])
	if err != nil {
		return err
	}
	filter, err := models.FilterFromArgs(args[1:])
	if err != nil {
		return err
	}

	q := a.content.Collection(kind, filter)
	defer q.Close()

	st := q.Load(ctx)
	switch st.Status {
	case query.StatusError:
		return st.Err
	case query.StatusEmpty:
		a.printf("No %s records\n", kind)
		return nil
	case query.StatusLoading:
		return ctx.Err()
	}
	return writeTable(a.out, st.Data)
}

// Show prints one record as JSON. For courses the referenced instructor is
// resolved as well.
func (a *App) Show(ctx context.Context, args []string) error {
	kind, id, err := kindAndID(args, "show <kind> <id>")
	if err != nil {
		return err
	}

	q := a.content.Record(kind, id)
	defer q.Close()

	st := q.Load(ctx)
	if st.Err != nil {
		return st.Err
	}
	if st.Status == query.StatusLoading {
		return ctx.Err()
	}
	if err := writeJSON(a.out, st.Data); err != nil {
		return err
	}

	if c, ok := st.Data.(models.Course); ok {
		ins, assigned, err := a.content.CourseInstructor(ctx, c)
		switch {
		case err != nil:
			a.printf("instructor: %s (lookup failed: %s)\n", c.Instructor.Name, describe(err))
		case assigned:
			a.printf("instructor: %s, %s\n", ins.Name, ins.Title)
		default:
			a.printf("instructor: %s\n", c.Instructor.Name)
		}
	}
	return nil
}

// Create reads JSON attributes and stores a new record of the kind.
func (a *App) Create(ctx context.Context, args []string) error {
	if err := a.requireAdmin(ctx); err != nil {
		return err
	}
	if len(args) != 1 {
		return usage("create <kind>")
	}
	kind, err := models.ParseKind(args[0])
	if err != nil {
		return err
	}
	attrs, err := a.readAttributes()
	if err != nil {
		return err
	}

	v, err := a.content.Create(ctx, kind, attrs)
	if err != nil {
		return err
	}
	a.printf("Created %s %s\n", kind, recordOf(v).Key())
	return nil
}

// Update reads JSON attributes and applies them to an existing record.
func (a *App) Update(ctx context.Context, args []string) error {
	if err := a.requireAdmin(ctx); err != nil {
		return err
	}
	kind, id, err := kindAndID(args, "update <kind> <id>")
	if err != nil {
		return err
	}
	attrs, err := a.readAttributes()
	if err != nil {
		return err
	}

	if _, err := a.content.Update(ctx, kind, id, attrs); err != nil {
		return err
	}
	a.printf("Updated %s %s\n", kind, id)
	return nil
}

// Delete removes a record after the operator confirms with "yes".
func (a *App) Delete(ctx context.Context, args []string) error {
	if err := a.requireAdmin(ctx); err != nil {
		return err
	}
	kind, id, err := kindAndID(args, "delete <kind> <id>")
	if err != nil {
		return err
	}

	answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete %s %s? Type yes to confirm", kind, id), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "yes") {
		fmt.Fprintln(a.out, "Cancelled")
		return nil
	}

	if err := a.content.Delete(ctx, kind, id); err != nil {
		return err
	}
	a.printf("Deleted %s %s\n", kind, id)
	return nil
}

// Upload sends a local file to the CMS media library and prints the asset
// id to reference from records.
func (a *App) Upload(ctx context.Context, args []string) error {
	if err := a.requireAdmin(ctx); err != nil {
		return err
	}
	if len(args) != 1 {
		return usage("upload <path>")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	asset, err := a.content.UploadAsset(ctx, filepath.Base(args[0]), f)
	if err != nil {
		return err
	}
	a.printf("Uploaded %s: id=%s url=%s\n", asset.Name, asset.ID, asset.URL)
	return nil
}

// Refresh drops cached reads of one kind, or of everything without an argument.
func (a *App) Refresh(ctx context.Context, args []string) error {
	switch len(args) {
	case 0:
		a.cache.Clear()
		fmt.Fprintln(a.out, "Cache cleared")
	case 1:
		kind, err := models.ParseKind(args[0])
		if err != nil {
			return err
		}
		a.cache.InvalidateKind(kind)
		a.printf("Cache cleared for %s\n", kind)
	default:
		return usage("refresh [kind]")
	}
	return nil
}

func (a *App) readAttributes() (map[string]any, error) {
	text, err := GetMultiline(a.reader, "Enter attributes as a JSON object", a.out)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("no attributes given")
	}
	var attrs map[string]any
	if err := json.Unmarshal([]byte(text), &attrs); err != nil {
		return nil, fmt.Errorf("attributes must be a JSON object: %w", err)
	}
	return attrs, nil
}
