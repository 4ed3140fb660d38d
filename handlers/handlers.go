package handlers

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SNZAMBA65/ecommerce-analysis/handlers/templates"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/analytics"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/dataset"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/history"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/types"
	"github.com/SNZAMBA65/ecommerce-analysis/lib/validation"
	"github.com/SNZAMBA65/ecommerce-analysis/models"
)

// recentRuns is the number of runs listed on the runs page.
const recentRuns = 20

// page carries what the base layout needs.
type page struct {
	Title    string
	Active   string
	Path     string
	LoadedAt time.Time
}

func newPage(r *http.Request, title, active string, loadedAt time.Time) page {
	return page{Title: title, Active: active, Path: r.URL.RequestURI(), LoadedAt: loadedAt}
}

type errorData struct {
	page
	Message string
}

func renderError(w http.ResponseWriter, message string, status int) {
	tmpl, err := templates.ParseTemplates("base.html", "error.html")
	if err != nil {
		slog.Error("Failed to parse error template", slog.Any("error", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	data := errorData{page: page{Title: "Erreur", Path: "/"}, Message: message}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		slog.Error("Failed to execute error template", slog.Any("error", err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// render executes a page into a buffer first so a template failure can still
// produce the error page.
func render(w http.ResponseWriter, file string, data any) {
	tmpl, err := templates.ParseTemplates("base.html", file)
	if err != nil {
		slog.Error("Failed to parse template", slog.String("template", file), slog.Any("error", err))
		renderError(w, "Une erreur est survenue lors du chargement de la page.", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		slog.Error("Failed to execute template", slog.String("template", file), slog.Any("error", err))
		renderError(w, "Une erreur est survenue lors de l'affichage de la page.", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

type summaryData struct {
	page
	KPIs              *dataset.KPISummary
	KPIErr            error
	VisitorConversion float64
	Funnel            []analytics.FunnelStage
	Shares            []analytics.Share
	Diagnostics       []analytics.Diagnostic
	FunnelChart       *chartView
	SharesChart       *chartView
	HistoryDisabled   bool
	LastRun           *models.PipelineRun
}

// HandleSummary renders the overview page. runs may be nil when the history
// database is unavailable.
func HandleSummary(store *dataset.Store, runs *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := store.Snapshot()
		data := summaryData{
			page:   newPage(r, "Résumé Général", "summary", snap.LoadedAt),
			KPIs:   snap.KPIs,
			KPIErr: snap.Err(dataset.ArtifactKPIs),
		}
		if data.KPIErr == nil {
			k := *snap.KPIs
			data.VisitorConversion = analytics.VisitorConversion(k)
			data.Funnel = analytics.BuildFunnel(k)
			data.Shares = analytics.ActionShares(k)
			data.Diagnostics = analytics.Diagnose(k)
			data.FunnelChart = mount("chart-funnel", funnelChart(data.Funnel))
			data.SharesChart = mount("chart-shares", sharesChart(data.Shares))
		}

		if runs == nil {
			data.HistoryDisabled = true
		} else {
			last, err := runs.Latest(r.Context())
			switch {
			case err == nil:
				data.LastRun = last
			case !errors.Is(err, history.ErrNoRuns):
				slog.Error("Failed to get latest pipeline run", slog.Any("error", err))
			}
		}

		render(w, "summary.html", data)
	}
}

type metricOption struct {
	Value analytics.Metric
	Label string
}

var metricOptions = []metricOption{
	{analytics.MetricAll, "Toutes les actions"},
	{analytics.MetricView, "Consultations"},
	{analytics.MetricAddToCart, "Ajouts panier"},
	{analytics.MetricTransaction, "Achats"},
}

type activityData struct {
	page
	From     string
	To       string
	MinDate  string
	MaxDate  string
	Metric   analytics.Metric
	Metrics  []metricOption
	DailyErr error
	Days     []dataset.DailyKPI
	Chart    *chartView

	Views     int64
	Carts     int64
	Purchases int64

	HourlyErr   error
	HourlyChart *chartView
	Peak        dataset.HourlyActivity
	Busiest     []int
	Quietest    []int
}

func HandleActivity(store *dataset.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, to, err := validation.ValidateDateRange(q.Get("from"), q.Get("to"))
		if err != nil {
			renderError(w, "Période invalide : "+err.Error(), http.StatusBadRequest)
			return
		}
		metric, err := analytics.ParseMetric(q.Get("metric"))
		if err != nil {
			renderError(w, "Indicateur invalide : "+err.Error(), http.StatusBadRequest)
			return
		}

		snap := store.Snapshot()
		data := activityData{
			page:      newPage(r, "Activité du Site", "activity", snap.LoadedAt),
			From:      q.Get("from"),
			To:        q.Get("to"),
			Metric:    metric,
			Metrics:   metricOptions,
			DailyErr:  snap.Err(dataset.ArtifactDaily),
			HourlyErr: snap.Err(dataset.ArtifactHourly),
		}

		if data.DailyErr == nil {
			if first, last, ok := analytics.DateBounds(snap.Daily); ok {
				data.MinDate = first.Format("2006-01-02")
				data.MaxDate = last.Format("2006-01-02")
			}
			data.Days = analytics.FilterDaily(snap.Daily, from, to)
			data.Views, data.Carts, data.Purchases = analytics.DailyTotals(data.Days)
			if len(data.Days) > 0 {
				data.Chart = mount("chart-daily", dailyChart(data.Days, metric))
			}
		}

		if data.HourlyErr == nil {
			data.Peak, _ = analytics.PeakHour(snap.Hourly)
			data.HourlyChart = mount("chart-hourly", hourlyChart(snap.Hourly, data.Peak))
			data.Busiest = analytics.BusiestHours(snap.Hourly, 3)
			data.Quietest = analytics.QuietestHours(snap.Hourly, 3)
		}

		render(w, "activity.html", data)
	}
}

type productRow struct {
	dataset.ProductStat
	Tier analytics.PerformanceTier
}

type tierRow struct {
	Tier  analytics.PerformanceTier
	Count int
}

type productsData struct {
	page
	Top       int
	MinTop    int
	MaxTop    int
	Sort      analytics.SortKey
	SortKeys  []analytics.SortKey
	Err       error
	Rows      []productRow
	Potential analytics.Potential
	Tiers     []tierRow

	RankingChart  *chartView
	TierChart     *chartView
	PriorityChart *chartView
}

func HandleProducts(store *dataset.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		top, err := validation.ParseTopN(q.Get("top"))
		if err != nil {
			renderError(w, "Nombre de produits invalide : "+err.Error(), http.StatusBadRequest)
			return
		}
		key, err := analytics.ParseSortKey(q.Get("sort"))
		if err != nil {
			renderError(w, "Critère de tri invalide : "+err.Error(), http.StatusBadRequest)
			return
		}

		snap := store.Snapshot()
		data := productsData{
			page:     newPage(r, "Performance des Produits", "products", snap.LoadedAt),
			Top:      top,
			MinTop:   validation.MinTopN,
			MaxTop:   validation.MaxTopN,
			Sort:     key,
			SortKeys: analytics.SortKeys,
			Err:      snap.Err(dataset.ArtifactProducts),
		}

		if data.Err == nil {
			ranked := analytics.TopProducts(snap.Products, key, top)
			for _, p := range ranked {
				data.Rows = append(data.Rows, productRow{
					ProductStat: p,
					Tier:        analytics.ClassifyPerformance(p.ConversionRate),
				})
			}
			if len(ranked) > 0 {
				data.RankingChart = mount("chart-ranking", rankingChart(ranked, key))
			}

			data.Potential = analytics.AnalyzePotential(snap.Products)
			for _, t := range analytics.Tiers {
				data.Tiers = append(data.Tiers, tierRow{Tier: t, Count: data.Potential.TierCounts[t]})
			}
			if data.Potential.Analyzed > 0 {
				data.TierChart = mount("chart-tiers", tierChart(data.Tiers))
			}
			if len(data.Potential.Priority) > 0 {
				data.PriorityChart = mount("chart-priority", priorityChart(data.Potential.Priority))
			}
		}

		render(w, "products.html", data)
	}
}

type visitorsData struct {
	page
	Err      error
	Total    int64
	Segments []analytics.SegmentSummary

	SegmentChart   *chartView
	BehaviourChart *chartView
}

func HandleVisitors(store *dataset.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := store.Snapshot()
		data := visitorsData{
			page: newPage(r, "Types de Visiteurs", "visitors", snap.LoadedAt),
			Err:  snap.Err(dataset.ArtifactEvents),
		}
		if data.Err == nil {
			profiles := analytics.ProfileVisitors(snap.Events)
			data.Total = int64(len(profiles))
			data.Segments = analytics.SummarizeSegments(profiles)
			if len(data.Segments) > 0 {
				data.SegmentChart = mount("chart-segments", segmentChart(data.Segments))
				data.BehaviourChart = mount("chart-behaviour", behaviourChart(data.Segments))
			}
		}
		render(w, "visitors.html", data)
	}
}

type testsData struct {
	page
	Err     error
	Tests   []dataset.ABTestResult
	Summary analytics.TestSummary
}

func HandleTests(store *dataset.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := store.Snapshot()
		data := testsData{
			page: newPage(r, "Tests A/B", "tests", snap.LoadedAt),
			Err:  snap.Err(dataset.ArtifactABTests),
		}
		if data.Err == nil {
			data.Tests = snap.ABTests
			data.Summary = analytics.SummarizeTests(snap.ABTests)
		}
		render(w, "tests.html", data)
	}
}

type runsData struct {
	page
	Disabled bool
	Err      error
	Runs     []models.PipelineRun
	Stats    types.RunStats
}

// HandleRuns lists recent pipeline runs, or a notice when runs is nil.
func HandleRuns(store *dataset.Store, runs *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := runsData{page: newPage(r, "Exécutions du Pipeline", "runs", store.Snapshot().LoadedAt)}
		if runs == nil {
			data.Disabled = true
			render(w, "runs.html", data)
			return
		}

		list, err := runs.Recent(r.Context(), recentRuns)
		if err != nil {
			slog.Error("Failed to list pipeline runs", slog.Any("error", err))
			data.Err = err
		}
		data.Runs = list

		if data.Err == nil {
			if data.Stats, err = runs.Stats(r.Context()); err != nil {
				slog.Error("Failed to get pipeline stats", slog.Any("error", err))
				data.Err = err
			}
		}

		render(w, "runs.html", data)
	}
}

// HandleRefresh drops the cached artifacts and sends the user back to the page
// they came from.
func HandleRefresh(store *dataset.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store.Invalidate()
		http.Redirect(w, r, safeRedirect(r.FormValue("next")), http.StatusSeeOther)
	}
}

// safeRedirect only allows local absolute paths.
func safeRedirect(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

type kpiResponse struct {
	KPIs              dataset.KPISummary      `json:"kpis"`
	VisitorConversion float64                 `json:"visitor_conversion"`
	Funnel            []analytics.FunnelStage `json:"funnel"`
	Diagnostics       []analytics.Diagnostic  `json:"diagnostics"`
	LoadedAt          time.Time               `json:"loaded_at"`
}

// HandleKPIs serves the summary figures as JSON.
func HandleKPIs(store *dataset.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := store.Snapshot()
		if err := snap.Err(dataset.ArtifactKPIs); err != nil {
			validation.WriteError(w, err, http.StatusServiceUnavailable)
			return
		}
		k := *snap.KPIs
		writeJSON(w, kpiResponse{
			KPIs:              k,
			VisitorConversion: analytics.VisitorConversion(k),
			Funnel:            analytics.BuildFunnel(k),
			Diagnostics:       analytics.Diagnose(k),
			LoadedAt:          snap.LoadedAt,
		})
	}
}
