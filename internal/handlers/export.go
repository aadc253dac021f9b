package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"sales-dashboard/internal/charts"
	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

func writeDownload(w http.ResponseWriter, filename, mimeType string, body []byte) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Cache-Control", noStore)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *APIHandlers) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	body, err := services.ExportCSV(snap.View)
	if err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "Failed to encode CSV"), observability.GetRequestID(r.Context()))
		return
	}
	writeDownload(w, services.CSVFileName, services.CSVMimeType+"; charset=utf-8", body)
}

func (h *APIHandlers) HandleExportXLSX(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := services.ExportXLSX(&buf, snap); err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "Failed to encode workbook"), observability.GetRequestID(r.Context()))
		return
	}
	writeDownload(w, services.XLSXFileName, services.XLSXMimeType, buf.Bytes())
}

func (h *APIHandlers) HandleRegionChart(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := charts.RegionBars(&buf, snap.RegionSales); err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "Failed to render chart"), observability.GetRequestID(r.Context()))
		return
	}
	writeSVG(w, buf.Bytes())
}

func (h *APIHandlers) HandleDailyChart(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := charts.DailyLine(&buf, snap.DailySales); err != nil {
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "Failed to render chart"), observability.GetRequestID(r.Context()))
		return
	}
	writeSVG(w, buf.Bytes())
}

func writeSVG(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", noStore)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
