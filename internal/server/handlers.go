package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/iwvelando/bigmac-dashboard/internal/export"
	"github.com/iwvelando/bigmac-dashboard/internal/insight"
	"github.com/iwvelando/bigmac-dashboard/internal/reconcile"
	"github.com/iwvelando/bigmac-dashboard/internal/session"
	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
	"github.com/iwvelando/bigmac-dashboard/pkg/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sessionResponse struct {
	ID         string   `json:"id"`
	CreatedAt  string   `json:"createdAt"`
	LastUsed   string   `json:"lastUsed"`
	Country    string   `json:"country,omitempty"`
	Prices     int      `json:"prices"`
	RateDays   int      `json:"rateDays"`
	Records    int      `json:"records"`
	Analyzed   bool     `json:"analyzed"`
	Narratives []string `json:"narratives,omitempty"`
}

type pricesResponse struct {
	Country      string `json:"country"`
	Observations int    `json:"observations"`
	Start        string `json:"start"`
	End          string `json:"end"`
}

type ratesResponse struct {
	Days    int                   `json:"days"`
	Start   string                `json:"start"`
	End     string                `json:"end"`
	Unit    reconcile.RateUnit    `json:"unit"`
	Columns reconcile.ColumnMatch `json:"columns"`
}

type recordView struct {
	Date           string           `json:"date"`
	Name           string           `json:"name,omitempty"`
	CountryCode    string           `json:"countryCode"`
	CurrencyCode   string           `json:"currencyCode,omitempty"`
	LocalPrice     decimal.Decimal  `json:"localPrice"`
	DollarExchange decimal.Decimal  `json:"dollarExchange"`
	DollarPrice    decimal.Decimal  `json:"dollarPrice"`
	USDRaw         *decimal.Decimal `json:"usdRaw,omitempty"`
	RateDate       string           `json:"rateDate"`
	ActualRate     float64          `json:"actualRate"`
	ImpliedRate    float64          `json:"impliedRate"`
	DeviationPct   float64          `json:"deviationPct"`
	Valuation      string           `json:"valuation"`
	MovingAverage  *float64         `json:"movingAverage,omitempty"`
}

type changePointView struct {
	Date         string       `json:"date"`
	DeviationPct float64      `json:"deviationPct"`
	Change       float64      `json:"change"`
	AbsChange    float64      `json:"absChange"`
	Direction    string       `json:"direction"`
	Magnitude    string       `json:"magnitude"`
	Nearby       []nearbyView `json:"nearby"`
	Domestic     bool         `json:"domestic"`
	Note         string       `json:"note"`
}

type nearbyView struct {
	Date     string `json:"date"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Days     int    `json:"days"`
}

type changePointsResponse struct {
	Percentile float64                      `json:"percentile"`
	Threshold  float64                      `json:"threshold"`
	Points     []changePointView            `json:"points"`
	Pattern    reconcile.ChangePointPattern `json:"pattern"`
}

type insightRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type insightResponse struct {
	Kind      insight.Kind `json:"kind"`
	Text      string       `json:"text"`
	Generated []string     `json:"generated"`
	Stored    bool         `json:"stored"`
}

func (h *handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.store.Create()
	h.logger.Info("session created",
		zap.String("op", "server.handleCreateSession"),
		zap.String("session", s.ID),
	)
	h.writeJSON(w, http.StatusCreated, viewSession(s.Snapshot()))
}

func (h *handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, "server.handleGetSession")
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, viewSession(s.Snapshot()))
}

func (h *handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(id); err != nil {
		h.respondErr(w, err, "server.handleDeleteSession")
		return
	}
	h.logger.Info("session deleted",
		zap.String("op", "server.handleDeleteSession"),
		zap.String("session", id),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handlePrices(w http.ResponseWriter, r *http.Request) {
	const op = "server.handlePrices"
	s, ok := h.session(w, r, op)
	if !ok {
		return
	}
	data, _, ok := h.readUpload(w, r, op)
	if !ok {
		return
	}

	country := strings.ToUpper(strings.TrimSpace(r.FormValue("country")))
	if country == "" {
		country = h.settings.Data.Country
	}

	prices, err := reconcile.LoadPriceSeries(h.logger, bytes.NewReader(data), country)
	h.metrics.uploads.WithLabelValues("prices", outcome(err)).Inc()
	if err != nil {
		h.respondErr(w, err, op)
		return
	}
	s.SetPrices(prices)

	obs := prices.Observations
	h.writeJSON(w, http.StatusOK, pricesResponse{
		Country:      prices.Country,
		Observations: len(obs),
		Start:        datetime.Format(obs[0].Date),
		End:          datetime.Format(obs[len(obs)-1].Date),
	})
}

func (h *handler) handleRates(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRates"
	s, ok := h.session(w, r, op)
	if !ok {
		return
	}
	data, filename, ok := h.readUpload(w, r, op)
	if !ok {
		return
	}

	opts := h.settings.RateOptions()
	if unit := strings.TrimSpace(r.FormValue("rateUnit")); unit != "" {
		if err := validation.ValidateRateUnit(unit); err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
			return
		}
		opts.Unit = reconcile.RateUnit(unit)
	}

	rates, err := reconcile.LoadRateSeries(h.logger, bytes.NewReader(data), filename, opts)
	h.metrics.uploads.WithLabelValues("rates", outcome(err)).Inc()
	if err != nil {
		h.respondErr(w, err, op)
		return
	}
	s.SetRates(rates)

	obs := rates.Observations
	h.writeJSON(w, http.StatusOK, ratesResponse{
		Days:    len(obs),
		Start:   datetime.Format(obs[0].Date),
		End:     datetime.Format(obs[len(obs)-1].Date),
		Unit:    rates.Unit,
		Columns: rates.Columns,
	})
}

func (h *handler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAnalysis"
	s, ok := h.session(w, r, op)
	if !ok {
		return
	}

	start := time.Now()
	records, summary, err := s.Analyze()
	if err != nil {
		h.respondErr(w, err, op)
		return
	}

	h.logger.Info("analysis computed",
		zap.String("op", op),
		zap.String("session", s.ID),
		zap.Int("records", len(records)),
		zap.Duration("duration", time.Since(start)),
	)
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": len(records),
		"summary": summary,
	})
}

func (h *handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleRecords"
	records, ok := h.analyzedRecords(w, r, op)
	if !ok {
		return
	}

	window := h.settings.Analysis.MovingAverageWindow
	if raw := r.URL.Query().Get("window"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid window %q", raw), op)
			return
		}
		window = n
	}
	ma, err := reconcile.MovingAverage(records, window)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}

	views := make([]recordView, len(records))
	for i, rec := range records {
		views[i] = viewRecord(rec)
		views[i].MovingAverage = ma[i]
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSummary"
	records, ok := h.analyzedRecords(w, r, op)
	if !ok {
		return
	}
	summary, err := reconcile.Summarize(records)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

func (h *handler) handleYearly(w http.ResponseWriter, r *http.Request) {
	records, ok := h.analyzedRecords(w, r, "server.handleYearly")
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, reconcile.YearlyAverages(records))
}

func (h *handler) handleChangePoints(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleChangePoints"
	records, ok := h.analyzedRecords(w, r, op)
	if !ok {
		return
	}

	percentile := h.settings.Analysis.Percentile
	if raw := r.URL.Query().Get("percentile"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid percentile %q", raw), op)
			return
		}
		percentile = p
	}

	points, threshold, err := reconcile.DetectChangePoints(records, percentile)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}

	annotated := insight.Annotate(points, h.catalog.Major)
	views := make([]changePointView, len(annotated))
	for i, a := range annotated {
		views[i] = viewChangePoint(a)
	}
	h.writeJSON(w, http.StatusOK, changePointsResponse{
		Percentile: percentile,
		Threshold:  threshold,
		Points:     views,
		Pattern:    reconcile.Pattern(points),
	})
}

func (h *handler) handleImpacts(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleImpacts"
	records, ok := h.analyzedRecords(w, r, op)
	if !ok {
		return
	}

	days := h.settings.Analysis.PolicyImpactDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid days %q", raw), op)
			return
		}
		days = n
	}

	impacts := reconcile.PolicyImpacts(records, h.catalog.Policy, days)
	if impacts == nil {
		impacts = []reconcile.Impact{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"days":    days,
		"impacts": impacts,
	})
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExport"
	records, ok := h.analyzedRecords(w, r, op)
	if !ok {
		return
	}
	summary, err := reconcile.Summarize(records)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, records, summary); err != nil {
		h.respondErr(w, err, op)
		return
	}

	filename := fmt.Sprintf("bigmac-%s-analysis.xlsx", strings.ToLower(records[0].CountryCode))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("failed to write workbook",
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

func (h *handler) handleListInsights(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, "server.handleListInsights")
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, s.Snapshot().Narratives)
}

func (h *handler) handleInsight(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleInsight"
	kind, err := insight.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.respondErr(w, err, op)
		return
	}
	s, ok := h.session(w, r, op)
	if !ok {
		return
	}

	var body insightRequest
	if err := render.DecodeJSON(r.Body, &body); err != nil && !errors.Is(err, io.EOF) {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return
	}

	gen := s.Generation()
	records, err := s.Records()
	if err != nil {
		h.respondErr(w, err, op)
		return
	}

	from, to, err := parseWindow(body.From, body.To)
	if err != nil {
		h.respondErr(w, err, op)
		return
	}
	windowed := !from.IsZero() || !to.IsZero()
	if windowed {
		records = reconcile.FilterWindow(records, from, to)
	}

	// Narratives of the full record set are kept on the session and reused
	// by later reports; windowed ones are returned only.
	var prior map[insight.Kind]string
	if !windowed {
		prior = s.Snapshot().Narratives
	}

	produced, err := h.analyst.Narrate(r.Context(), kind, records, prior)
	h.metrics.narratives.WithLabelValues(string(kind), outcome(err)).Inc()
	if err != nil {
		h.respondErr(w, err, op)
		return
	}

	// A re-analysis during narration makes the result stale for storage.
	stored := !windowed
	generated := make([]string, 0, len(produced))
	for k, text := range produced {
		generated = append(generated, string(k))
		if stored && !s.SetNarrativeAt(gen, k, text) {
			stored = false
			h.logger.Info("discarding narrative of superseded records",
				zap.String("op", op),
				zap.String("session", s.ID),
				zap.String("kind", string(k)))
		}
	}
	sort.Strings(generated)

	h.writeJSON(w, http.StatusOK, insightResponse{
		Kind:      kind,
		Text:      produced[kind],
		Generated: generated,
		Stored:    stored,
	})
}

// session resolves the {id} URL parameter.
func (h *handler) session(w http.ResponseWriter, r *http.Request, op string) (*session.Session, bool) {
	s, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, err, op)
		return nil, false
	}
	return s, true
}

// analyzedRecords returns the session's records narrowed to the optional
// from/to query window. A window that matches nothing is an error.
func (h *handler) analyzedRecords(w http.ResponseWriter, r *http.Request, op string) ([]reconcile.Record, bool) {
	s, ok := h.session(w, r, op)
	if !ok {
		return nil, false
	}
	records, err := s.Records()
	if err != nil {
		h.respondErr(w, err, op)
		return nil, false
	}

	q := r.URL.Query()
	from, to, err := parseWindow(q.Get("from"), q.Get("to"))
	if err != nil {
		h.respondErr(w, err, op)
		return nil, false
	}
	if from.IsZero() && to.IsZero() {
		return records, true
	}

	filtered := reconcile.FilterWindow(records, from, to)
	if len(filtered) == 0 {
		h.respondErr(w, fmt.Errorf("%w: no records between %q and %q", reconcile.ErrEmptyResult, q.Get("from"), q.Get("to")), op)
		return nil, false
	}
	return filtered, true
}

func parseWindow(rawFrom, rawTo string) (from, to time.Time, err error) {
	if rawFrom != "" {
		if from, err = datetime.ParseDate(rawFrom); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from: %v", reconcile.ErrInvalidParameter, err)
		}
	}
	if rawTo != "" {
		if to, err = datetime.ParseDate(rawTo); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to: %v", reconcile.ErrInvalidParameter, err)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to %s is before from %s", reconcile.ErrInvalidParameter, rawTo, rawFrom)
	}
	return from, to, nil
}

// readUpload reads the multipart "file" field within the upload limit.
func (h *handler) readUpload(w http.ResponseWriter, r *http.Request, op string) ([]byte, string, bool) {
	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	}
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return nil, "", false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing data file", op)
		return nil, "", false
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to read upload: %v", err), op)
		return nil, "", false
	}
	return buf.Bytes(), header.Filename, true
}

func viewSession(snap session.Snapshot) sessionResponse {
	resp := sessionResponse{
		ID:        snap.ID,
		CreatedAt: snap.CreatedAt.UTC().Format(time.RFC3339),
		LastUsed:  snap.LastUsed.UTC().Format(time.RFC3339),
		Records:   len(snap.Records),
		Analyzed:  snap.Summary != nil,
	}
	if snap.Prices != nil {
		resp.Country = snap.Prices.Country
		resp.Prices = snap.Prices.Len()
	}
	resp.RateDays = snap.Rates.Len()
	for k := range snap.Narratives {
		resp.Narratives = append(resp.Narratives, string(k))
	}
	sort.Strings(resp.Narratives)
	return resp
}

func viewRecord(rec reconcile.Record) recordView {
	return recordView{
		Date:           datetime.Format(rec.Date),
		Name:           rec.Name,
		CountryCode:    rec.CountryCode,
		CurrencyCode:   rec.CurrencyCode,
		LocalPrice:     rec.LocalPrice,
		DollarExchange: rec.DollarExchange,
		DollarPrice:    rec.DollarPrice,
		USDRaw:         rec.USDRaw,
		RateDate:       datetime.Format(rec.RateDate),
		ActualRate:     rec.ActualRate,
		ImpliedRate:    rec.ImpliedRate,
		DeviationPct:   rec.DeviationPct,
		Valuation:      reconcile.ValuationLabel(rec.DeviationPct),
	}
}

func viewChangePoint(a insight.AnnotatedChangePoint) changePointView {
	nearby := make([]nearbyView, len(a.Nearby))
	for i, n := range a.Nearby {
		nearby[i] = nearbyView{
			Date:     datetime.Format(n.Date),
			Title:    n.Title,
			Category: string(n.Category),
			Days:     n.Days,
		}
	}
	return changePointView{
		Date:         datetime.Format(a.Date),
		DeviationPct: a.DeviationPct,
		Change:       a.Change,
		AbsChange:    a.AbsChange,
		Direction:    a.Direction,
		Magnitude:    a.Magnitude,
		Nearby:       nearby,
		Domestic:     a.Domestic,
		Note:         a.Note,
	}
}
