package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sokinpui/markpatch/model"
)

// Header labels of the change-request form. Each pattern captures the value in
// the "val" group.
var (
	bestandRegex      = regexp.MustCompile(`(?i)^\s*Bestand\s*:\s*(?P<val>.+?)\s*$`)
	actieRegex        = regexp.MustCompile(`(?i)^\s*Actie\s*:\s*(?P<val>.+?)\s*$`)
	markerVanRegex    = regexp.MustCompile(`(?i)^\s*Marker[-–]van\s*:\s*(?P<val>.+?)\s*$`)
	markerTotRegex    = regexp.MustCompile(`(?i)^\s*Marker[-–]tot\s*:\s*(?P<val>.+?)\s*$`)
	contextRegex      = regexp.MustCompile(`(?i)^\s*Contextregels\s*:\s*(?P<val>.+?)\s*$`)
	blockIDRegex      = regexp.MustCompile(`(?i)^\s*Blok[-–_]ID\s*:\s*(?P<val>.+?)\s*$`)
	reasonRegex       = regexp.MustCompile(`(?i)^\s*Korte\s+reden\s*:\s*(?P<val>.+?)\s*$`)
	proposedHeaderRgx = regexp.MustCompile(`(?i)^\s*Voorstel[-– ]blok\s*:\s*$`)
	codeFenceRegex    = regexp.MustCompile("^\\s*```+")
)

type field int

const (
	fieldTarget field = iota
	fieldAction
	fieldMarkerStart
	fieldMarkerEnd
	fieldContext
	fieldBlockID
	fieldReason
)

var headerFields = []struct {
	re    *regexp.Regexp
	field field
}{
	{bestandRegex, fieldTarget},
	{actieRegex, fieldAction},
	{markerVanRegex, fieldMarkerStart},
	{markerTotRegex, fieldMarkerEnd},
	{contextRegex, fieldContext},
	{blockIDRegex, fieldBlockID},
	{reasonRegex, fieldReason},
}

// ParseRequest parses a change-request form. It never fails: problems are
// collected in ValidationErrors.
func ParseRequest(text string) model.EditRequest {
	return ParseRequestWithContext(text, model.DefaultContextLines)
}

// ParseRequestWithContext is ParseRequest with the context count used when the
// form has no Contextregels line.
func ParseRequestWithContext(text string, contextLines int) model.EditRequest {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	req := model.EditRequest{ContextLines: max(contextLines, 0)}

	var rawAction string
	i := 0
	for ; i < len(lines); i++ {
		line := lines[i]
		if proposedHeaderRgx.MatchString(line) {
			i++
			break
		}
		for _, hf := range headerFields {
			match := hf.re.FindStringSubmatch(line)
			if match == nil {
				continue
			}
			val := strings.TrimSpace(match[hf.re.SubexpIndex("val")])
			switch hf.field {
			case fieldTarget:
				req.TargetPath = unquote(val)
			case fieldAction:
				rawAction = val
			case fieldMarkerStart:
				req.MarkerStart = val
			case fieldMarkerEnd:
				req.MarkerEnd = val
			case fieldContext:
				n, err := strconv.Atoi(val)
				if err != nil {
					req.ValidationErrors = append(req.ValidationErrors, fmt.Sprintf("Contextregels: %q is not a number", val))
					continue
				}
				req.ContextLines = max(0, n)
			case fieldBlockID:
				req.BlockID = val
			case fieldReason:
				req.Reason = val
			}
			break
		}
	}

	req.ProposedBlock = readProposedBlock(lines[min(i, len(lines)):])

	if rawAction != "" {
		action, ok := model.ParseAction(rawAction)
		req.Action = action
		if !ok {
			req.ValidationErrors = append(req.ValidationErrors, fmt.Sprintf("Actie: %q is not one of ADD, REPLACE, DELETE", rawAction))
		}
	}
	req.ValidationErrors = append(req.ValidationErrors, validate(req, rawAction)...)
	return req
}

// readProposedBlock returns everything after the header, without an opening
// fence and stopping at a closing fence. Content is kept verbatim.
func readProposedBlock(lines []string) string {
	if len(lines) > 0 && codeFenceRegex.MatchString(lines[0]) {
		lines = lines[1:]
	}
	var block []string
	for _, line := range lines {
		if codeFenceRegex.MatchString(line) {
			break
		}
		block = append(block, line)
	}
	return strings.TrimRight(strings.Join(block, "\n"), "\n")
}

func validate(req model.EditRequest, rawAction string) []string {
	var problems []string
	if req.TargetPath == "" {
		problems = append(problems, "Bestand: missing")
	}
	if rawAction == "" {
		problems = append(problems, "Actie: missing (ADD|REPLACE|DELETE)")
	}
	if req.Action.NeedsMarkers() && (req.MarkerStart == "" || req.MarkerEnd == "") {
		problems = append(problems, "Marker-van and Marker-tot are required for REPLACE/DELETE")
	}
	if (req.Action == model.ActionAdd || req.Action == model.ActionReplace) && strings.TrimSpace(req.ProposedBlock) == "" {
		problems = append(problems, fmt.Sprintf("Voorstel-blok is required for %s", req.Action))
	}
	return problems
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	return strings.Trim(s, `'`)
}
