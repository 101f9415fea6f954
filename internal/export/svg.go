package export

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// tikzScale maps the model's 400x400 canvas to roughly 12x12 cm.
const tikzScale = 0.03

const bezierSteps = 10

// SVGToTikZ converts a simple SVG figure into a TikZ picture. Supported
// elements are line, circle, ellipse, rect, polygon, path and text;
// anything inside defs (markers and the like) is skipped. Returns "" when
// the SVG cannot be parsed or produces no drawing commands.
func SVGToTikZ(svg string) string {
	if strings.TrimSpace(svg) == "" {
		return ""
	}

	decoder := xml.NewDecoder(strings.NewReader(svg))
	decoder.Strict = false

	conv := &tikzConverter{width: 400, height: 400}
	defsDepth := 0
	var textEl *svgText

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := strings.ToLower(t.Name.Local)
			if defsDepth > 0 || name == "defs" {
				defsDepth++
				continue
			}
			switch name {
			case "svg":
				conv.setCanvas(t.Attr)
			case "line", "circle", "ellipse", "rect", "polygon", "path":
				conv.element(name, t.Attr)
			case "text":
				textEl = &svgText{
					x:  attrFloat(t.Attr, "x") + attrFloat(t.Attr, "dx"),
					y:  attrFloat(t.Attr, "y"),
					dy: attrFloat(t.Attr, "dy"),
				}
			}
		case xml.EndElement:
			name := strings.ToLower(t.Name.Local)
			if defsDepth > 0 {
				defsDepth--
				continue
			}
			if name == "text" && textEl != nil {
				conv.text(*textEl)
				textEl = nil
			}
		case xml.CharData:
			if textEl != nil && defsDepth == 0 {
				textEl.content += string(t)
			}
		}
	}

	if len(conv.cmds) == 0 {
		return ""
	}
	lines := make([]string, 0, len(conv.cmds)+2)
	lines = append(lines, `\begin{tikzpicture}[>=Stealth, scale=0.8, line width=0.5pt]`)
	lines = append(lines, conv.cmds...)
	lines = append(lines, `\end{tikzpicture}`)
	return strings.Join(lines, "\n")
}

type svgText struct {
	x, y, dy float64
	content  string
}

type tikzConverter struct {
	width, height float64
	cmds          []string
}

func (c *tikzConverter) setCanvas(attrs []xml.Attr) {
	if vb := attrValue(attrs, "viewBox"); vb != "" {
		parts := strings.Fields(strings.ReplaceAll(vb, ",", " "))
		if len(parts) == 4 {
			if w, err := strconv.ParseFloat(parts[2], 64); err == nil {
				c.width = w
			}
			if h, err := strconv.ParseFloat(parts[3], 64); err == nil {
				c.height = h
			}
		}
		return
	}
	if w := parsePx(attrValue(attrs, "width")); w > 0 {
		c.width = w
	}
	if h := parsePx(attrValue(attrs, "height")); h > 0 {
		c.height = h
	}
}

// flipY converts SVG's top-left origin to TikZ's bottom-left one and
// applies the canvas scale.
func (c *tikzConverter) flipY(y float64) float64 {
	return (c.height - y) * tikzScale
}

func (c *tikzConverter) element(name string, attrs []xml.Attr) {
	dashed := ""
	if isDashedAttrs(attrs) {
		dashed = "[dashed]"
	}
	get := func(k string) float64 { return attrFloat(attrs, k) }

	switch name {
	case "line":
		c.cmds = append(c.cmds, fmt.Sprintf(`\draw%s (%.3f,%.3f) -- (%.3f,%.3f);`,
			dashed, get("x1")*tikzScale, c.flipY(get("y1")), get("x2")*tikzScale, c.flipY(get("y2"))))
	case "circle":
		c.cmds = append(c.cmds, fmt.Sprintf(`\draw%s (%.3f,%.3f) circle (%.3f);`,
			dashed, get("cx")*tikzScale, c.flipY(get("cy")), get("r")*tikzScale))
	case "ellipse":
		c.cmds = append(c.cmds, fmt.Sprintf(`\draw%s (%.3f,%.3f) ellipse (%.3f and %.3f);`,
			dashed, get("cx")*tikzScale, c.flipY(get("cy")), get("rx")*tikzScale, get("ry")*tikzScale))
	case "rect":
		// Background rects without a stroke are not drawn.
		stroke := attrValue(attrs, "stroke")
		if stroke == "" || strings.EqualFold(stroke, "none") {
			return
		}
		x, y := get("x"), get("y")
		w, h := get("width"), get("height")
		c.cmds = append(c.cmds, fmt.Sprintf(`\draw%s (%.3f,%.3f) rectangle (%.3f,%.3f);`,
			dashed, x*tikzScale, c.flipY(y), (x+w)*tikzScale, c.flipY(y+h)))
	case "polygon":
		var nums []float64
		for _, f := range strings.Fields(strings.ReplaceAll(attrValue(attrs, "points"), ",", " ")) {
			if v, err := strconv.ParseFloat(f, 64); err == nil {
				nums = append(nums, v)
			}
		}
		if len(nums) < 6 {
			return
		}
		var coords []string
		for i := 0; i+1 < len(nums); i += 2 {
			coords = append(coords, fmt.Sprintf("(%.3f,%.3f)", nums[i]*tikzScale, c.flipY(nums[i+1])))
		}
		c.cmds = append(c.cmds, fmt.Sprintf(`\draw%s %s -- cycle;`, dashed, strings.Join(coords, " -- ")))
	case "path":
		for _, seg := range parsePathData(attrValue(attrs, "d")) {
			if len(seg) < 2 {
				continue
			}
			coords := make([]string, len(seg))
			for i, pt := range seg {
				coords[i] = fmt.Sprintf("(%.3f,%.3f)", pt.x*tikzScale, c.flipY(pt.y))
			}
			c.cmds = append(c.cmds, fmt.Sprintf(`\draw%s %s;`, dashed, strings.Join(coords, " -- ")))
		}
	}
}

func (c *tikzConverter) text(t svgText) {
	content := normalizeMath(strings.TrimSpace(t.content))
	if content == "" {
		return
	}
	// Labels are typeset in math mode, which suits coordinate-point names.
	c.cmds = append(c.cmds, fmt.Sprintf(`\node at (%.3f,%.3f) {$%s$};`,
		t.x*tikzScale, c.flipY(t.y)-t.dy*tikzScale, content))
}

func attrValue(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value
		}
	}
	return ""
}

func attrFloat(attrs []xml.Attr, name string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(attrValue(attrs, name)), 64)
	if err != nil {
		return 0
	}
	return v
}

func parsePx(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "px"), 64)
	if err != nil {
		return 0
	}
	return v
}

func isDashedAttrs(attrs []xml.Attr) bool {
	return strings.Contains(attrValue(attrs, "style"), "dash") ||
		strings.Contains(attrValue(attrs, "class"), "dash") ||
		attrValue(attrs, "stroke-dasharray") != ""
}

type point struct {
	x, y float64
}

var pathTokenRe = regexp.MustCompile(`[MmLlHhVvCcSsQqTtAaZz]|-?\d*\.?\d+(?:[eE][-+]?\d+)?`)

// parsePathData flattens SVG path data into polylines. Bezier curves are
// sampled, arcs degrade to a straight line to their endpoint.
func parsePathData(d string) [][]point {
	tokens := pathTokenRe.FindAllString(d, -1)

	var segments [][]point
	var current []point
	idx := 0
	cmd := ""
	cursor := point{}
	start := point{}
	var lastCtrl *point

	isCmd := func(tok string) bool {
		return len(tok) == 1 && (tok[0] < '0' || tok[0] > '9') && tok[0] != '-' && tok[0] != '.'
	}
	readNumbers := func(n int) []float64 {
		var vals []float64
		for len(vals) < n && idx < len(tokens) && !isCmd(tokens[idx]) {
			v, err := strconv.ParseFloat(tokens[idx], 64)
			if err != nil {
				break
			}
			vals = append(vals, v)
			idx++
		}
		return vals
	}
	moveTo := func(pt point) {
		if len(current) > 0 {
			segments = append(segments, current)
		}
		current = []point{pt}
		cursor = pt
		start = pt
	}
	lineTo := func(pt point) {
		current = append(current, pt)
		cursor = pt
	}
	abs := func(x, y float64, relative bool) point {
		if relative {
			return point{cursor.x + x, cursor.y + y}
		}
		return point{x, y}
	}

	for idx < len(tokens) {
		if isCmd(tokens[idx]) {
			cmd = tokens[idx]
			idx++
		}
		if cmd == "" {
			break
		}
		relative := cmd == strings.ToLower(cmd)

		switch strings.ToUpper(cmd) {
		case "M":
			nums := readNumbers(2)
			if len(nums) < 2 {
				return finishSegments(segments, current)
			}
			moveTo(abs(nums[0], nums[1], relative))
			// Extra coordinate pairs after a moveto are implicit linetos.
			for idx < len(tokens) && !isCmd(tokens[idx]) {
				extra := readNumbers(2)
				if len(extra) < 2 {
					break
				}
				lineTo(abs(extra[0], extra[1], relative))
			}
			lastCtrl = nil
			if relative {
				cmd = "l"
			} else {
				cmd = "L"
			}
		case "L":
			for idx < len(tokens) && !isCmd(tokens[idx]) {
				nums := readNumbers(2)
				if len(nums) < 2 {
					break
				}
				lineTo(abs(nums[0], nums[1], relative))
			}
			lastCtrl = nil
		case "H":
			for idx < len(tokens) && !isCmd(tokens[idx]) {
				nums := readNumbers(1)
				if len(nums) < 1 {
					break
				}
				x := nums[0]
				if relative {
					x += cursor.x
				}
				lineTo(point{x, cursor.y})
			}
			lastCtrl = nil
		case "V":
			for idx < len(tokens) && !isCmd(tokens[idx]) {
				nums := readNumbers(1)
				if len(nums) < 1 {
					break
				}
				y := nums[0]
				if relative {
					y += cursor.y
				}
				lineTo(point{cursor.x, y})
			}
			lastCtrl = nil
		case "C":
			for idx < len(tokens) && !isCmd(tokens[idx]) {
				nums := readNumbers(6)
				if len(nums) < 6 {
					break
				}
				p1 := abs(nums[0], nums[1], relative)
				p2 := abs(nums[2], nums[3], relative)
				end := abs(nums[4], nums[5], relative)
				for _, pt := range cubicSamples(cursor, p1, p2, end) {
					lineTo(pt)
				}
				cursor = end
				lastCtrl = &p2
			}
		case "S":
			for idx < len(tokens) && !isCmd(tokens[idx]) {
				nums := readNumbers(4)
				if len(nums) < 4 {
					break
				}
				p2 := abs(nums[0], nums[1], relative)
				end := abs(nums[2], nums[3], relative)
				p1 := reflectCtrl(cursor, lastCtrl)
				for _, pt := range cubicSamples(cursor, p1, p2, end) {
					lineTo(pt)
				}
				cursor = end
				lastCtrl = &p2
			}
		case "Q":
			for idx < len(tokens) && !isCmd(tokens[idx]) {
				nums := readNumbers(4)
				if len(nums) < 4 {
					break
				}
				p1 := abs(nums[0], nums[1], relative)
				end := abs(nums[2], nums[3], relative)
				for _, pt := range quadSamples(cursor, p1, end) {
					lineTo(pt)
				}
				cursor = end
				lastCtrl = &p1
			}
		case "T":
			for idx < len(tokens) && !isCmd(tokens[idx]) {
				nums := readNumbers(2)
				if len(nums) < 2 {
					break
				}
				end := abs(nums[0], nums[1], relative)
				p1 := reflectCtrl(cursor, lastCtrl)
				for _, pt := range quadSamples(cursor, p1, end) {
					lineTo(pt)
				}
				cursor = end
				lastCtrl = &p1
			}
		case "A":
			// Arcs degrade to a straight line to their endpoint.
			for idx < len(tokens) && !isCmd(tokens[idx]) {
				nums := readNumbers(7)
				if len(nums) < 7 {
					break
				}
				lineTo(abs(nums[5], nums[6], relative))
			}
			lastCtrl = nil
		case "Z":
			if len(current) > 0 && current[len(current)-1] != start {
				current = append(current, start)
			}
			if len(current) > 0 {
				segments = append(segments, current)
				current = nil
			}
			cursor = start
			lastCtrl = nil
		default:
			idx++
			lastCtrl = nil
		}
	}
	return finishSegments(segments, current)
}

func finishSegments(segments [][]point, current []point) [][]point {
	if len(current) > 0 {
		segments = append(segments, current)
	}
	return segments
}

// reflectCtrl mirrors the previous control point around the cursor, the
// continuation rule for S and T commands.
func reflectCtrl(cursor point, lastCtrl *point) point {
	if lastCtrl == nil {
		return cursor
	}
	return point{2*cursor.x - lastCtrl.x, 2*cursor.y - lastCtrl.y}
}

func cubicSamples(p0, p1, p2, p3 point) []point {
	out := make([]point, 0, bezierSteps)
	for i := 1; i <= bezierSteps; i++ {
		t := float64(i) / bezierSteps
		mt := 1 - t
		out = append(out, point{
			x: mt*mt*mt*p0.x + 3*mt*mt*t*p1.x + 3*mt*t*t*p2.x + t*t*t*p3.x,
			y: mt*mt*mt*p0.y + 3*mt*mt*t*p1.y + 3*mt*t*t*p2.y + t*t*t*p3.y,
		})
	}
	return out
}

func quadSamples(p0, p1, p2 point) []point {
	out := make([]point, 0, bezierSteps)
	for i := 1; i <= bezierSteps; i++ {
		t := float64(i) / bezierSteps
		mt := 1 - t
		out = append(out, point{
			x: mt*mt*p0.x + 2*mt*t*p1.x + t*t*p2.x,
			y: mt*mt*p0.y + 2*mt*t*p1.y + t*t*p2.y,
		})
	}
	return out
}
