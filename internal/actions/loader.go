package actions

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"ncsdec/internal/nss"
)

// The catalogue interleaves documentation comments like
//
//	// 768. GetScriptParameter
//
// followed by a signature line:
//
//	int GetScriptParameter( int nIndex );
//
// Indices are explicit and may skip; adjacent non-action declarations may
// intervene. Signatures bind to the numeric index of the preceding
// header, never to their position. Collection starts at the first header
// with index 0.
var (
	headerRe = regexp.MustCompile(`^\s*//\s*(\d+)\b.*$`)
	sigRe    = regexp.MustCompile(`^\s*(\w+)\s+(\w+)\s*\((.*)\)\s*;?.*`)
	paramRe  = regexp.MustCompile(`^\s*(\w+)\s+\w+(\s*=\s*(\S+))?\s*$`)
)

// Load parses the action table from an nwscript source stream.
func Load(r io.Reader) (*Table, error) {
	var entries []*Action
	started := false
	pending := -1
	maxIndex := -1

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if m := headerRe.FindStringSubmatch(line); m != nil {
			idx, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if idx == 0 {
				started = true
			}
			if started {
				pending = idx
				if idx > maxIndex {
					maxIndex = idx
				}
			}
			continue
		}
		if !started {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		if pending >= 0 {
			if m := sigRe.FindStringSubmatch(line); m != nil {
				for len(entries) <= pending {
					entries = append(entries, nil)
				}
				entries[pending] = parseSignature(m[1], m[2], m[3])
			}
			pending = -1
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	for len(entries) <= maxIndex {
		entries = append(entries, nil)
	}
	return &Table{entries: entries}, nil
}

// parseSignature builds an Action from a split declaration line such as
// ("int", "GetScriptParameter", "int nIndex").
func parseSignature(ret, name, params string) *Action {
	a := &Action{
		Name:   name,
		Return: nss.ParseKeyword(ret),
	}
	for tok := range strings.SplitSeq(params, ",") {
		m := paramRe.FindStringSubmatch(tok)
		if m == nil {
			continue
		}
		a.Params = append(a.Params, nss.ParseKeyword(m[1]))
		a.Defaults = append(a.Defaults, strings.TrimSpace(m[3]))
	}
	return a
}
