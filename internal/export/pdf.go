package export

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// CompilePDF runs xelatex over the document in a temporary directory and
// returns the PDF bytes. LaTeX exits nonzero on warnings, so success is
// judged by the output file existing, not the exit code.
func CompilePDF(ctx context.Context, latex string) ([]byte, error) {
	engine, err := exec.LookPath("xelatex")
	if err != nil {
		return nil, fmt.Errorf("xelatex not found (install texlive-xetex): %w", err)
	}

	dir, err := os.MkdirTemp("", "zujuan-export-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	texFile := filepath.Join(dir, "paper.tex")
	if err := os.WriteFile(texFile, []byte(latex), 0o644); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, engine, "-interaction=nonstopmode", "-halt-on-error", "paper.tex")
	cmd.Dir = dir
	output, runErr := cmd.CombinedOutput()

	pdf, err := os.ReadFile(filepath.Join(dir, "paper.pdf"))
	if err != nil {
		if runErr != nil {
			return nil, fmt.Errorf("xelatex failed: %w\n%s", runErr, tail(output, 2000))
		}
		return nil, fmt.Errorf("xelatex produced no PDF:\n%s", tail(output, 2000))
	}
	return pdf, nil
}

func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
