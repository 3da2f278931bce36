package console

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"admin-console/internal/model"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", raw)
	}
}

// Renderer writes screens in one output format. Tables are meant for people;
// JSON and YAML carry the same data for scripts.
type Renderer struct {
	format Format
}

func NewRenderer(format Format) *Renderer {
	if format == "" {
		format = FormatTable
	}
	return &Renderer{format: format}
}

// Listing describes one rendered page.
type Listing struct {
	Resource string `json:"resource" yaml:"resource"`
	Page     int    `json:"page" yaml:"page"`
	LastPage int    `json:"last_page" yaml:"last_page"`
	PageSize int    `json:"page_size" yaml:"page_size"`
	Total    int64  `json:"total" yaml:"total"`
	Filter   string `json:"filter,omitempty" yaml:"filter,omitempty"`
	Shown    int    `json:"shown" yaml:"shown"`
	Items    any    `json:"items" yaml:"items"`
}

// List renders a page. headers and cells are used by the table format only.
func (r *Renderer) List(w io.Writer, l Listing, headers []string, cells [][]string) error {
	if r.format != FormatTable {
		return r.encode(w, l)
	}

	if _, err := fmt.Fprintf(w, "%s: page %d of %d, %d total\n", l.Resource, l.Page, l.LastPage, l.Total); err != nil {
		return err
	}
	if l.Filter != "" {
		if _, err := fmt.Fprintf(w, "filter %q: %d shown on this page\n", l.Filter, l.Shown); err != nil {
			return err
		}
	}
	if len(cells) == 0 {
		_, err := fmt.Fprintln(w, "(no items)")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range cells {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// Field is one labelled value of a record.
type Field struct {
	Label string
	Value string
}

// Record renders a single object: as aligned label/value lines for tables,
// or v encoded for the structured formats.
func (r *Renderer) Record(w io.Writer, fields []Field, v any) error {
	if r.format != FormatTable {
		return r.encode(w, v)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range fields {
		fmt.Fprintf(tw, "%s:\t%s\n", f.Label, f.Value)
	}
	return tw.Flush()
}

func (r *Renderer) encode(w io.Writer, v any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", r.format)
	}
}

type userRow struct {
	ID        int64      `json:"id" yaml:"id"`
	Email     string     `json:"email" yaml:"email"`
	Role      string     `json:"role" yaml:"role"`
	Status    string     `json:"status" yaml:"status"`
	LastLogin *time.Time `json:"last_login,omitempty" yaml:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
}

func userRows(users []model.User) ([]userRow, [][]string) {
	rows := make([]userRow, 0, len(users))
	cells := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, userRow{
			ID:        u.ID,
			Email:     u.Email,
			Role:      model.RoleLabel(u.Role),
			Status:    model.StatusLabel(u.Status),
			LastLogin: u.LastLoginTime,
			CreatedAt: u.CreatedAt,
		})

		lastLogin := "never"
		if u.LastLoginTime != nil {
			lastLogin = humanize.Time(*u.LastLoginTime)
		}
		cells = append(cells, []string{
			strconv.FormatInt(u.ID, 10),
			u.Email,
			model.RoleLabel(u.Role),
			model.StatusLabel(u.Status),
			lastLogin,
		})
	}
	return rows, cells
}

var userHeaders = []string{"ID", "EMAIL", "ROLE", "STATUS", "LAST LOGIN"}

type universityRow struct {
	ID        int64      `json:"id" yaml:"id"`
	Name      string     `json:"name" yaml:"name"`
	Deleted   bool       `json:"deleted" yaml:"deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" yaml:"deleted_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at" yaml:"updated_at"`
}

func universityRows(universities []model.University) ([]universityRow, [][]string) {
	rows := make([]universityRow, 0, len(universities))
	cells := make([][]string, 0, len(universities))
	for _, u := range universities {
		row := universityRow{ID: u.ID, Name: u.Name, Deleted: u.Deleted(), UpdatedAt: u.UpdatedAt}
		state := "live"
		if u.Deleted() {
			deletedAt := u.DeletedAt.Time
			row.DeletedAt = &deletedAt
			state = "deleted " + humanize.Time(deletedAt)
		}
		rows = append(rows, row)
		cells = append(cells, []string{strconv.FormatInt(u.ID, 10), u.Name, state})
	}
	return rows, cells
}

var universityHeaders = []string{"ID", "NAME", "STATE"}
