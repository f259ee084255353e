package command

import (
	"sort"
	"strconv"

	"github.com/yndnr/ovecore-go/internal/cli/output"
	"github.com/yndnr/ovecore-go/internal/core/domain"
)

// sectionRows renders sections one per row.
type sectionRows []*domain.Section

func (l sectionRows) Table(wide bool) *output.Table {
	headers := []string{"ID", "SPACE", "X", "Y", "W", "H", "APP"}
	if wide {
		headers = append(headers, "CLIENTS", "STATE")
	}
	t := output.NewTable(headers...)
	for _, s := range l {
		app := "-"
		if s.App != nil {
			app = output.Text(s.App.URL)
		}
		row := []string{
			strconv.Itoa(s.ID), s.Space,
			output.Float(s.X), output.Float(s.Y), output.Float(s.W), output.Float(s.H),
			app,
		}
		if wide {
			row = append(row, strconv.Itoa(coveredClients(s)), sectionState(s))
		}
		t.AddRow(row...)
	}
	return t
}

func coveredClients(s *domain.Section) int {
	n := 0
	for _, l := range s.Spaces[s.Space] {
		if !l.Empty {
			n++
		}
	}
	return n
}

func sectionState(s *domain.Section) string {
	if s.App == nil || len(s.App.State) == 0 {
		return "-"
	}
	return string(s.App.State)
}

// sectionDetail renders one section and its per-client layout.
type sectionDetail struct {
	*domain.Section
}

func (d sectionDetail) Unwrap() any { return d.Section }

func (d sectionDetail) Table(bool) *output.Table {
	t := output.NewTable("CLIENT", "X", "Y", "W", "H", "OFFSET")
	for i, l := range d.Spaces[d.Space] {
		if l.Empty {
			continue
		}
		t.AddRow(strconv.Itoa(i),
			output.Float(l.X), output.Float(l.Y), output.Float(l.W), output.Float(l.H),
			output.Float(l.Offset.X)+","+output.Float(l.Offset.Y))
	}
	return t
}

// idResult is the {"id": n} answer of a single mutation.
type idResult struct {
	ID int `json:"id"`
}

// idsResult is the {"ids": [...]} answer of a bulk mutation.
type idsResult struct {
	IDs []int `json:"ids"`
}

func (r idsResult) Table(bool) *output.Table {
	t := output.NewTable("ID")
	for _, id := range r.IDs {
		t.AddRow(strconv.Itoa(id))
	}
	return t
}

// groupRows renders groups one per row.
type groupRows []*domain.Group

func (l groupRows) Table(bool) *output.Table {
	t := output.NewTable("ID", "SECTIONS")
	for _, g := range l {
		t.AddRow(strconv.Itoa(g.ID), output.Ints(g.Sections))
	}
	return t
}

// spaceRows renders the client regions of each space, sorted by name.
type spaceRows map[string][]domain.ClientRegion

func (l spaceRows) Table(wide bool) *output.Table {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)

	if !wide {
		t := output.NewTable("SPACE", "CLIENTS")
		for _, name := range names {
			t.AddRow(name, strconv.Itoa(len(l[name])))
		}
		return t
	}

	t := output.NewTable("SPACE", "CLIENT", "X", "Y", "W", "H")
	for _, name := range names {
		for i, r := range l[name] {
			t.AddRow(name, strconv.Itoa(i),
				output.Float(r.X), output.Float(r.Y), output.Float(r.W), output.Float(r.H))
		}
	}
	return t
}

// sizeResult renders a space geometry.
type sizeResult struct {
	Space string
	Size  domain.Size
}

func (s sizeResult) Unwrap() any { return s.Size }

func (s sizeResult) Table(bool) *output.Table {
	t := output.NewTable("SPACE", "W", "H")
	t.AddRow(s.Space, output.Float(s.Size.W), output.Float(s.Size.H))
	return t
}

// connectionRows renders connections one per secondary.
type connectionRows []*domain.Connection

func (l connectionRows) Table(wide bool) *output.Table {
	headers := []string{"PRIMARY", "SECONDARY", "SECTIONS", "READY"}
	if wide {
		headers = append(headers, "PRIMARY_HOST", "SECONDARY_HOST")
	}
	t := output.NewTable(headers...)
	for _, conn := range l {
		for _, sec := range conn.Secondary {
			links := 0
			for _, link := range conn.SectionMap {
				if link.Link.Same(sec) {
					links++
				}
			}
			row := []string{conn.Primary.Space, sec.Space, strconv.Itoa(links), strconv.FormatBool(conn.IsInitialized)}
			if wide {
				row = append(row, conn.Primary.Host, sec.Host)
			}
			t.AddRow(row...)
		}
	}
	return t
}

// statusResult is the body of /health and /ready.
type statusResult struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Time   string `json:"time,omitempty"`
}
