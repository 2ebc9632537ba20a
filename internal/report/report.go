// Package report renders learner reports as markdown and PDF.
package report

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/at-ishikawa/spacedrep/internal/schedule"
	"github.com/at-ishikawa/spacedrep/internal/statistics"
)

const templateName = "learner-report.md.go.tmpl"

//go:embed templates/learner-report.md.go.tmpl
var fallbackReportTemplate string

// Data is the input of the report template.
type Data struct {
	LearnerID   string
	GeneratedAt time.Time
	Summary     statistics.Summary
	Activity    statistics.Activity
	Due         []schedule.Record
}

func parseTemplateWithFallback(templatePath string) (*template.Template, error) {
	funcMap := template.FuncMap{
		"join": strings.Join,
		"formatTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04 MST")
		},
		"formatDue": func(t *time.Time) string {
			if t == nil {
				return "-"
			}
			return t.Format("2006-01-02")
		},
	}

	if templatePath == "" {
		tmpl, err := template.New(templateName).
			Funcs(funcMap).
			Parse(fallbackReportTemplate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedded template: %w", err)
		}
		return tmpl, nil
	}

	// If template path is provided, it must be valid.
	if _, err := os.Stat(templatePath); err != nil {
		return nil, fmt.Errorf("template file not found or accessible: %w", err)
	}
	tmpl, err := template.New(filepath.Base(templatePath)).
		Funcs(funcMap).
		ParseFiles(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template file %s: %w", templatePath, err)
	}
	return tmpl, nil
}

// WriteMarkdown renders data with the template at templatePath, or the
// embedded template when templatePath is empty.
func WriteMarkdown(output io.Writer, templatePath string, data Data) error {
	tmpl, err := parseTemplateWithFallback(templatePath)
	if err != nil {
		return fmt.Errorf("parseTemplateWithFallback() > %w", err)
	}
	if err := tmpl.Execute(output, data); err != nil {
		return fmt.Errorf("tmpl.Execute() > %w", err)
	}
	return nil
}

// Writer writes learner reports into a directory.
type Writer struct {
	outputDirectory string
	templatePath    string
}

// NewWriter creates a Writer.
func NewWriter(outputDirectory, templatePath string) *Writer {
	return &Writer{
		outputDirectory: outputDirectory,
		templatePath:    templatePath,
	}
}

// Write writes <learner>.md and, when generatePDF is set, <learner>.pdf.
// It returns the paths of the written files.
func (w *Writer) Write(data Data, generatePDF bool) ([]string, error) {
	if err := os.MkdirAll(w.outputDirectory, 0755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll(%s) > %w", w.outputDirectory, err)
	}

	outputFilename := filepath.Join(w.outputDirectory, sanitizeFilename(data.LearnerID)+".md")
	output, err := os.Create(outputFilename)
	if err != nil {
		return nil, fmt.Errorf("os.Create(%s) > %w", outputFilename, err)
	}
	defer func() {
		_ = output.Close()
	}()

	if err := WriteMarkdown(output, w.templatePath, data); err != nil {
		return nil, fmt.Errorf("WriteMarkdown(%s) > %w", outputFilename, err)
	}
	if err := output.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", outputFilename, err)
	}
	paths := []string{outputFilename}

	if generatePDF {
		pdfPath, err := ConvertMarkdownToPDF(outputFilename)
		if err != nil {
			return nil, fmt.Errorf("ConvertMarkdownToPDF(%s) > %w", outputFilename, err)
		}
		paths = append(paths, pdfPath)
	}
	return paths, nil
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
}
