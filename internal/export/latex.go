package export

import (
	"fmt"
	"sort"
	"strings"

	"zujuan/internal/model"
)

// Options controls what an exported paper includes.
type Options struct {
	IncludeAnswer      bool
	IncludeExplanation bool
}

// latexHeader is the exam-paper preamble: CJK fonts, TikZ for figures and
// the adaptive \choice macro that lays four options out in one, two or
// four columns depending on their width.
const latexHeader = `\documentclass[no-math]{ctexart}
\setCJKmainfont{Noto Serif CJK SC}
\setCJKsansfont{Noto Sans CJK SC}
\setCJKmonofont{Noto Sans Mono CJK SC}
\everymath{\displaystyle}

\usepackage{amsmath,amssymb}
\usepackage{tikz}
\usetikzlibrary{arrows.meta,patterns,calc}
\usepackage{graphicx}
\usepackage{enumitem}
\setenumerate{itemsep=0pt,partopsep=0pt,parsep=\parskip,topsep=0pt}
\allowdisplaybreaks[4]
\tikzset{
  every picture/.style={scale=0.75},
  every node/.style={font=\small},
  line width=0.5pt,
  >={Stealth[length=4pt]}
}

\usepackage[paperheight=26cm,paperwidth=18.4cm,left=2cm,right=2cm,top=1.5cm,bottom=2cm,headsep=10pt]{geometry}
\usepackage{fancyhdr}
\pagestyle{fancy}
\renewcommand{\headrulewidth}{0pt}
\usepackage{lastpage}
\usepackage[bodytextleadingratio=1.67,restoremathleading=true]{zhlineskip}
\usepackage{ifthen}

\newcommand{\onech}[4]{\makebox[3.4cm][l]{{\sf A}．#1}\makebox[3.4cm][l]{{\sf B}．#2}\makebox[3.4cm][l]{{\sf C}．#3}\makebox[3.4cm][l]{{\sf D}．#4}}
\newcommand{\twoch}[4]{\makebox[6.8cm][l]{{\sf A}．#1}\makebox[6.8cm][l]{{\sf B}．#2}\\ \makebox[6.8cm][l]{{\sf C}．#3}\makebox[6.8cm][l]{{\sf D}．#4}}
\newcommand{\fourch}[4]{{\sf A}．#1\\ {\sf B}．#2\\ {\sf C}．#3\\ {\sf D}．#4}

\newlength\widthcha
\newlength\widthchb
\newlength\widthch
\newlength\fourthtabwidth
\setlength\fourthtabwidth{0.22\textwidth}
\newlength\halftabwidth
\setlength\halftabwidth{0.45\textwidth}

\newcommand{\choice}[4]{%
  \settowidth\widthcha{{\sf A}M.#1}%
  \setlength{\widthch}{\widthcha}%
  \settowidth\widthchb{{\sf B}M.#2}%
  \ifthenelse{\lengthtest{\widthch < \widthchb}}{\setlength{\widthch}{\widthchb}}{}%
  \settowidth\widthchb{{\sf C}M.#3}%
  \ifthenelse{\lengthtest{\widthch < \widthchb}}{\setlength{\widthch}{\widthchb}}{}%
  \settowidth\widthchb{{\sf D}M.#4}%
  \ifthenelse{\lengthtest{\widthch < \widthchb}}{\setlength{\widthch}{\widthchb}}{}%
  \ifthenelse{\lengthtest{\widthch < \fourthtabwidth}}{\onech{#1}{#2}{#3}{#4}}%
  {\ifthenelse{\lengthtest{\widthch < \halftabwidth}}{\twoch{#1}{#2}{#3}{#4}}%
  {\fourch{#1}{#2}{#3}{#4}}}%
}

\newcommand{\undsp}{\underline{\makebox[3em]{}}}
\newcommand{\spar}{\mathrel{/\mkern-5mu/}}

\begin{document}
\SetMathEnvironmentSinglespace{1}
\lineskiplimit=5.5pt
\lineskip=7pt
\abovedisplayshortskip=5pt
\belowdisplayshortskip=5pt
\abovedisplayskip=5pt
\belowdisplayskip=5pt

\fancyfoot[C]{\bf\sf 数学试题 第{\sf\thepage} 页 （共~{\sf\pageref{LastPage}}~页）}

\begin{center}
\zihao{2}\heiti <<TITLE>>
\end{center}
`

type sectionKind int

const (
	sectionChoice sectionKind = iota
	sectionMulti
	sectionFill
	sectionSolve
)

var sectionNames = []string{"一", "二", "三", "四", "五"}

func sectionTitle(kind sectionKind, count, perScore, total int) string {
	switch kind {
	case sectionChoice:
		return fmt.Sprintf("选择题：本题共 %d 小题，每小题 %d 分，共 %d 分。在每小题给出的四个选项中，只有一项是符合题目要求的。", count, perScore, total)
	case sectionMulti:
		return fmt.Sprintf("选择题：本题共 %d 小题，每小题 %d 分，共 %d 分。在每小题给出的选项中，有多项符合题目要求。", count, perScore, total)
	case sectionFill:
		return fmt.Sprintf("填空题：本题共 %d 小题，每小题 %d 分，共 %d 分。", count, perScore, total)
	default:
		return fmt.Sprintf("解答题：本题共 %d 小题，共 %d 分。解答应写出文字说明、证明过程或演算步骤。", count, total)
	}
}

func classify(t model.QuestionType) sectionKind {
	switch t {
	case model.TypeChoice:
		return sectionChoice
	case model.TypeMulti:
		return sectionMulti
	case model.TypeFillBlank:
		return sectionFill
	default:
		return sectionSolve
	}
}

type placedQuestion struct {
	pq model.PaperQuestion
	q  model.Question
}

// BuildLaTeX renders a paper into a compilable LaTeX document. Questions
// are grouped into the standard four sections by type, in paper order
// inside each section.
func BuildLaTeX(paper *model.Paper, questions map[string]model.Question, opts Options) string {
	header := strings.ReplaceAll(latexHeader, "<<TITLE>>", escapeLaTeX(paper.Title))

	byKind := make(map[sectionKind][]placedQuestion)
	for _, pq := range sortedByOrder(paper.Questions) {
		q, ok := questions[pq.QuestionID]
		if !ok {
			continue
		}
		kind := classify(q.QuestionType)
		byKind[kind] = append(byKind[kind], placedQuestion{pq, q})
	}

	var body []string
	sectionNumber := 0
	questionNumber := 0

	for _, kind := range []sectionKind{sectionChoice, sectionMulti, sectionFill, sectionSolve} {
		placed := byKind[kind]
		if len(placed) == 0 {
			continue
		}
		sectionNumber++

		total := 0
		for _, p := range placed {
			total += p.pq.Score
		}
		perScore := placed[0].pq.Score

		name := fmt.Sprint(sectionNumber)
		if sectionNumber <= len(sectionNames) {
			name = sectionNames[sectionNumber-1]
		}

		var section []string
		section = append(section,
			`\begin{enumerate}[align=left,labelindent=0em,labelwidth=2em,labelsep=0em,leftmargin=2em]`,
			fmt.Sprintf(`\item[{\bf %s、}]{\bf\sf %s}`, name, sectionTitle(kind, len(placed), perScore, total)),
			`\end{enumerate}`,
			fmt.Sprintf(`\begin{enumerate}[align=left,labelindent=0em,label={\bf\sf\arabic*.},labelwidth=1.5em,labelsep=0em,leftmargin=1.5em,itemsep=0pt,topsep=0pt,start=%d]`, questionNumber+1),
		)

		for _, p := range placed {
			questionNumber++
			section = append(section, renderQuestion(kind, p.q, opts))
		}
		section = append(section, `\end{enumerate}`)
		body = append(body, strings.Join(section, "\n"))
	}

	return header + "\n" + strings.Join(body, "\n\n") + "\n\\end{document}\n"
}

func renderQuestion(kind sectionKind, q model.Question, opts Options) string {
	var parts []string
	parts = append(parts, `\item `+escapeLaTeX(q.QuestionText))

	switch {
	case (kind == sectionChoice || kind == sectionMulti) && len(q.Options) == 4:
		opt := make([]string, 4)
		for i, o := range q.Options {
			opt[i] = escapeLaTeX(stripOptionPrefix(o))
		}
		parts = append(parts, `\\`+"\n"+fmt.Sprintf(`\choice{%s}{%s}{%s}{%s}`, opt[0], opt[1], opt[2], opt[3]))
	case len(q.Options) > 0:
		parts = append(parts, `\\`)
		for i, o := range q.Options {
			parts = append(parts, fmt.Sprintf(`{\sf %c}．%s\quad`, 'A'+i, escapeLaTeX(stripOptionPrefix(o))))
		}
	}

	diagram := diagramFor(q)

	if kind == sectionSolve {
		switch {
		case diagram != "" && !opts.IncludeAnswer:
			// Figure on the left, working space on the right.
			parts = append(parts,
				"\n"+`\par\noindent`,
				`\begin{minipage}[t]{0.45\textwidth}`,
				`\centering`,
				diagram,
				`\end{minipage}`,
				`\hfill`,
				`\begin{minipage}[t]{0.5\textwidth}`,
				`\vspace{8em}`,
				`\end{minipage}`,
			)
		case diagram != "":
			parts = append(parts, wrapDiagram(diagram))
		case !opts.IncludeAnswer:
			parts = append(parts, "\n"+`\vspace{6em}`)
		}
	} else if diagram != "" {
		parts = append(parts, wrapDiagram(diagram))
	}

	if opts.IncludeAnswer && q.Answer != "" {
		parts = append(parts, "\n\\textbf{答案：} "+escapeLaTeX(q.Answer))
	}
	if opts.IncludeExplanation && q.Explanation != "" {
		parts = append(parts, "\n\\textbf{解析：} "+escapeLaTeX(q.Explanation))
	}
	return strings.Join(parts, "\n")
}

// diagramFor returns the TikZ block for a question's figure. A hand-edited
// TikZ field wins over conversion from the model's SVG.
func diagramFor(q model.Question) string {
	if !q.HasGeometry {
		return ""
	}
	if q.GeometryTikZ != "" {
		return q.GeometryTikZ
	}
	if q.GeometrySVG != "" {
		return SVGToTikZ(q.GeometrySVG)
	}
	return ""
}

// wrapDiagram floats the figure in a right-aligned minipage so it does not
// take the full text width.
func wrapDiagram(content string) string {
	if content == "" {
		return ""
	}
	return "\n\\par\\noindent\\hfill\\begin{minipage}{0.45\\textwidth}\\centering\n" +
		content +
		"\n\\end{minipage}\\hfill\\null\n"
}

func sortedByOrder(pqs []model.PaperQuestion) []model.PaperQuestion {
	out := make([]model.PaperQuestion, len(pqs))
	copy(out, pqs)
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
