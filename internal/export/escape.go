package export

import (
	"regexp"
	"strings"
)

var (
	codeBlockRe   = regexp.MustCompile("(?s)```.*?```")
	headingRe     = regexp.MustCompile(`(?m)^\s*#{1,6}\s*`)
	listMarkRe    = regexp.MustCompile(`(?m)^\s*[-+*]\s+`)
	mathSpanRe    = regexp.MustCompile(`(?s)(\$\$.*?\$\$|\$.*?\$)`)
	dollarRe      = regexp.MustCompile(`(^|[^\\])\$`)
	blankRe       = regexp.MustCompile(`(\\?_){2,}`)
	optionPrefix  = regexp.MustCompile(`^\s*[A-DＡ-Ｄa-d][.。．、﹒)]\s*`)
	parallelRe    = regexp.MustCompile(`([^:\\])//`)
	textParallel  = regexp.MustCompile(`\s//\s`)
	funcNameRe    = regexp.MustCompile(`\\?\b(arcsin|arccos|arctan|sin|cos|tan|cot|sec|csc|ln|log|exp)\b`)
)

// fullwidth punctuation normalized to halfwidth so the typeset output is
// consistent regardless of how the source text was entered.
var fullwidthReplacer = strings.NewReplacer(
	"（", "(",
	"）", ")",
	"，", ", ",
	"：", ": ",
	"；", "; ",
	"？", "?",
	"！", "!",
	"．", ".",
	"　", " ",
)

// cleanMarkdown strips common markdown artifacts the vision model emits
// and normalizes fullwidth punctuation.
func cleanMarkdown(text string) string {
	if text == "" {
		return ""
	}
	t := codeBlockRe.ReplaceAllString(text, "")
	t = headingRe.ReplaceAllString(t, "")
	t = strings.ReplaceAll(t, "**", "")
	t = listMarkRe.ReplaceAllString(t, "")
	t = fullwidthReplacer.Replace(t)
	return strings.TrimSpace(t)
}

// escapeLaTeX escapes special characters outside $...$ and $$...$$ math
// spans, which are passed through untouched. An unbalanced dollar sign is
// closed at the end of the string rather than corrupting the document.
func escapeLaTeX(text string) string {
	if text == "" {
		return ""
	}
	text = cleanMarkdown(text)

	if len(dollarRe.FindAllString(text, -1))%2 != 0 {
		text += "$"
	}

	var b strings.Builder
	last := 0
	for _, span := range mathSpanRe.FindAllStringIndex(text, -1) {
		b.WriteString(escapePlain(text[last:span[0]]))
		b.WriteString(normalizeMath(text[span[0]:span[1]]))
		last = span[1]
	}
	b.WriteString(escapePlain(text[last:]))
	return b.String()
}

// unicodeToMath replaces symbols that only typeset correctly as math
// commands. Used inside math spans and TikZ node labels.
var unicodeToMath = strings.NewReplacer(
	"π", `\pi `,
	"∥", `\spar `,
	"∞", `\infty `,
	"×", `\times `,
	"÷", `\div `,
	"°", `^\circ `,
	"₀", "_0", "₁", "_1", "₂", "_2", "₃", "_3", "₄", "_4",
	"₅", "_5", "₆", "_6", "₇", "_7", "₈", "_8", "₉", "_9",
	"⁰", "^0", "¹", "^1", "²", "^2", "³", "^3", "⁴", "^4",
	"⁵", "^5", "⁶", "^6", "⁷", "^7", "⁸", "^8", "⁹", "^9",
)

// normalizeMath rewrites unicode math symbols and bare function names into
// LaTeX commands inside a math span.
func normalizeMath(text string) string {
	if text == "" {
		return ""
	}
	t := unicodeToMath.Replace(text)
	// Bare function names become commands. The optional leading backslash
	// in the pattern keeps already-escaped names from doubling up.
	t = funcNameRe.ReplaceAllStringFunc(t, func(m string) string {
		if strings.HasPrefix(m, `\`) {
			return m
		}
		return `\` + m
	})
	t = parallelRe.ReplaceAllString(t, `$1\spar `)
	return t
}

// symbols that need wrapping when they appear in plain text.
var plainSymbolReplacer = strings.NewReplacer(
	"π", `$\pi$`,
	"∥", `$\spar$`,
	"∞", `$\infty$`,
	"×", `$\times$`,
	"÷", `$\div$`,
	"°", `$^\circ$`,
)

const blankPlaceholder = "\x00BLANK\x00"

var latexSpecialReplacer = strings.NewReplacer(
	"&", `\&`,
	"%", `\%`,
	"#", `\#`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
	"~", `\textasciitilde{}`,
	"^", `\^{}`,
)

// escapePlain escapes text outside math spans. Runs of underscores are the
// fill-in-the-blank convention and become the \undsp rule. Symbol
// substitution runs after escaping so the inserted math is not mangled.
func escapePlain(text string) string {
	t := blankRe.ReplaceAllString(text, blankPlaceholder)
	t = latexSpecialReplacer.Replace(t)
	t = plainSymbolReplacer.Replace(t)
	t = textParallel.ReplaceAllString(t, ` \spar `)
	return strings.ReplaceAll(t, blankPlaceholder, `\undsp `)
}

// stripOptionPrefix removes a leading "A." style label so the template's
// option macro does not double it.
func stripOptionPrefix(text string) string {
	return strings.TrimSpace(optionPrefix.ReplaceAllString(text, ""))
}
