package reports

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cybernetisk/okotools/pkg/tripletex"
)

// Reference lists are plain ';'-separated lines without a header. Separators
// inside names are replaced so every line keeps its column count.

// DepartmentList renders departments as id;number;name.
func DepartmentList(departments []tripletex.Department) []byte {
	var buf bytes.Buffer
	for _, d := range departments {
		fmt.Fprintf(&buf, "%d;%s;%s\n", d.ID, clean(d.DepartmentNumber), clean(d.Name))
	}
	return buf.Bytes()
}

// AccountList renders accounts as number;name;type;active.
func AccountList(accounts []tripletex.Account) []byte {
	var buf bytes.Buffer
	for _, a := range accounts {
		active := 1
		if a.IsInactive {
			active = 0
		}
		fmt.Fprintf(&buf, "%d;%s;%s;%d\n", a.Number, clean(a.Name), clean(a.Type), active)
	}
	return buf.Bytes()
}

// ProjectList renders projects as id;parent;number;name. Parent is the main
// project id, empty for top level projects.
func ProjectList(projects []tripletex.Project) []byte {
	var buf bytes.Buffer
	for _, p := range projects {
		parent := ""
		if p.MainProject != nil {
			parent = fmt.Sprint(p.MainProject.ID)
		}
		fmt.Fprintf(&buf, "%d;%s;%s;%s\n", p.ID, parent, clean(p.Number), clean(p.Name))
	}
	return buf.Bytes()
}

var listCleaner = strings.NewReplacer(";", ",", "\r", " ", "\n", " ")

func clean(s string) string {
	return listCleaner.Replace(s)
}
