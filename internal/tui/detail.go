package tui

import (
	"fmt"
	"strings"

	"github.com/pders01/userdir/internal/users"
)

type field struct {
	label string
	value string
}

type section struct {
	title  string
	fields []field
}

const sectionCount = 2

func detailSections(u users.User) [sectionCount]section {
	return [sectionCount]section{
		{
			title: "Contact / Location",
			fields: []field{
				{"Email", u.Email},
				{"Phone", u.Phone},
				{"City", u.Address.City},
				{"Country", u.Address.Country},
			},
		},
		{
			title: "Work / Education",
			fields: []field{
				{"Company", u.Company.Name},
				{"Title", u.Company.Title},
				{"University", u.University},
			},
		},
	}
}

// userMarkdown renders the detail page of u as markdown. Collapsed sections
// keep their heading only.
func userMarkdown(u users.User, expanded [sectionCount]bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", u.FullName())

	var header []string
	if h := u.Handle(); h != "" {
		header = append(header, "**"+h+"**")
	}
	if u.Age > 0 {
		header = append(header, fmt.Sprintf("`%d years old`", u.Age))
	}
	if u.Gender != "" {
		header = append(header, "`"+u.Gender+"`")
	}
	if len(header) > 0 {
		b.WriteString(strings.Join(header, " · "))
		b.WriteString("\n\n")
	}

	for i, s := range detailSections(u) {
		if !expanded[i] {
			fmt.Fprintf(&b, "## ▸ %s\n\n_%d fields hidden, press %d to expand_\n\n", s.title, len(s.fields), i+1)
			continue
		}
		fmt.Fprintf(&b, "## ▾ %s\n\n", s.title)
		for _, f := range s.fields {
			v := strings.TrimSpace(f.value)
			if v == "" {
				v = "_n/a_"
			}
			fmt.Fprintf(&b, "- **%s:** %s\n", f.label, v)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// UserMarkdown renders the full detail page of u with every section open.
func UserMarkdown(u users.User) string {
	var open [sectionCount]bool
	for i := range open {
		open[i] = true
	}
	return userMarkdown(u, open)
}
