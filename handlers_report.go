package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/example/screenplay/internal/report"
)

// sendAttachment writes a fully rendered document. Once the body has started
// only a log line is possible on failure.
func (a *App) sendAttachment(w http.ResponseWriter, r *http.Request, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		a.logger.WarnContext(r.Context(), "report write failed",
			slog.String("request_id", requestIDFromContext(r.Context())),
			slog.String("content_type", contentType),
			slog.String("error", err.Error()),
		)
	}
}

// HandlePDFReport renders every character into an A4 PDF.
// GET /api/reports/pdf
func (a *App) HandlePDFReport(w http.ResponseWriter, r *http.Request) {
	entries, err := report.Assemble(r.Context(), a.DB)
	if err != nil {
		a.respondError(w, r, err, "Error generating PDF")
		return
	}
	pdf, err := report.RenderPDF(r.Context(), a.engine, entries)
	if err != nil {
		a.respondError(w, r, err, "Error generating PDF")
		return
	}
	a.sendAttachment(w, r, "application/pdf", "", pdf)
}

// HandleTabularReport serves the spreadsheet, or the CSV export with ?format=csv.
// GET /api/reports/excel-csv
func (a *App) HandleTabularReport(w http.ResponseWriter, r *http.Request) {
	asCSV := r.URL.Query().Get("format") == "csv"
	a.serveTabular(w, r, asCSV)
}

// HandleCSVReport serves the CSV export.
// GET /api/reports/csv
func (a *App) HandleCSVReport(w http.ResponseWriter, r *http.Request) {
	a.serveTabular(w, r, true)
}

func (a *App) serveTabular(w http.ResponseWriter, r *http.Request, asCSV bool) {
	entries, err := report.Assemble(r.Context(), a.DB)
	if err != nil {
		a.respondError(w, r, err, "Error generating Excel and CSV")
		return
	}
	tab, err := report.BuildTabular(r.Context(), entries)
	if err != nil {
		a.respondError(w, r, err, "Error generating Excel and CSV")
		return
	}
	if asCSV {
		a.sendAttachment(w, r, report.CSVContentType, report.CSVFilename, tab.CSV)
		return
	}
	a.sendAttachment(w, r, report.XLSXContentType, report.XLSXFilename, tab.XLSX)
}
