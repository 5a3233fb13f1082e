package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"github.com/Skufu/CKDRisk/internal/coeffs"
	"github.com/Skufu/CKDRisk/internal/intake"
	"github.com/Skufu/CKDRisk/internal/logging"
	"github.com/Skufu/CKDRisk/internal/model"
	"github.com/Skufu/CKDRisk/internal/session"
	"github.com/Skufu/CKDRisk/web"
)

type server struct {
	coeffs   *coeffs.Store
	sessions *session.Store
	db       HealthChecker
	logger   *zap.Logger
}

type pageData struct {
	View              string
	Form              intake.Admission
	Selected          map[string]bool
	Errors            []string
	Ineligible        bool
	IneligibleMessage string
	Results           model.Assessment
	Ages              []int
	Months            []string
	Comorbidities     []intake.Comorbidity
}

type riskResponse struct {
	DeathInHospital float64             `json:"deathInHospital"`
	ProlongedLOS    float64             `json:"prolongedLos"`
	Display         map[string]string   `json:"display"`
	Features        model.FeatureVector `json:"features"`
}

type outcomeInfo struct {
	Name      string   `json:"name"`
	Intercept float64  `json:"intercept"`
	Features  []string `json:"features"`
}

func setupRouter(s *server) (*gin.Engine, error) {
	tmpl, err := web.Templates(template.FuncMap{"percent": model.FormatPercent})
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	router := gin.New()
	router.Use(
		logging.Middleware(s.logger),
		gin.Recovery(),
		limitBodySize(1<<20), // 1MB max body
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}),
	)
	router.SetHTMLTemplate(tmpl)
	router.StaticFS("/static", http.FS(web.Static()))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", s.ready)

	router.GET("/", s.showPage)
	router.POST("/", s.submitForm)
	router.POST("/reset", s.resetForm)

	api := router.Group("/api")
	api.POST("/risk", s.assessRisk)
	api.GET("/outcomes", s.listOutcomes)

	return router, nil
}

func (s *server) ready(c *gin.Context) {
	if !s.coeffs.Loaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "coefficients": "not loaded"})
		return
	}
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "coefficients": "loaded", "db": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":       "degraded",
			"coefficients": "loaded",
			"db":           fmt.Sprintf("unhealthy: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "coefficients": "loaded", "db": "ok"})
}

func (s *server) showPage(c *gin.Context) {
	id := sessionID(c)
	data := newPageData(defaultAdmission())
	if v, ok := s.sessions.Get(id).(session.ShowingResults); ok {
		data.View = v.Kind()
		data.Results = v.Assessment
	}
	c.HTML(http.StatusOK, "page", data)
}

func (s *server) submitForm(c *gin.Context) {
	id := sessionID(c)

	if err := c.Request.ParseForm(); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		data := newPageData(defaultAdmission())
		data.Errors = []string{"invalid form submission"}
		c.HTML(status, "page", data)
		return
	}

	// the gate answer is read on its own so no other field can mask a refusal
	primary := c.PostForm("primary_ckd")
	if err := intake.CheckEligibility(primary); err != nil {
		data := newPageData(intake.Admission{PrimaryCKD: primary})
		data.Ineligible = true
		c.HTML(http.StatusUnprocessableEntity, "page", data)
		return
	}

	var form intake.Admission
	if err := c.ShouldBind(&form); err != nil {
		data := newPageData(form)
		data.Errors = []string{"invalid form submission"}
		c.HTML(http.StatusBadRequest, "page", data)
		return
	}

	assessment, err := s.evaluate(c.Request.Context(), form)
	if err != nil {
		status, data := http.StatusInternalServerError, newPageData(form)
		var verr *intake.ValidationError
		switch {
		case errors.Is(err, intake.ErrIneligible):
			status = http.StatusUnprocessableEntity
			data.Ineligible = true
		case errors.As(err, &verr):
			status = http.StatusUnprocessableEntity
			data.Errors = verr.Fields
		default:
			_ = c.Error(err)
			data.Errors = []string{"risk calculation failed"}
		}
		c.HTML(status, "page", data)
		return
	}

	s.sessions.Set(id, session.Submit(assessment))
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *server) resetForm(c *gin.Context) {
	s.sessions.Set(sessionID(c), session.Reset())
	c.Redirect(http.StatusSeeOther, "/")
}

func (s *server) assessRisk(c *gin.Context) {
	var gate intake.Eligibility
	if err := c.ShouldBindBodyWith(&gate, binding.JSON); err != nil {
		payloadError(c, err)
		return
	}
	if err := intake.CheckEligibility(gate.PrimaryCKD); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "ineligible", "message": intake.IneligibleMessage})
		return
	}

	var payload intake.Admission
	if err := c.ShouldBindBodyWith(&payload, binding.JSON); err != nil {
		payloadError(c, err)
		return
	}

	features, err := intake.Prepare(payload)
	if err != nil {
		var verr *intake.ValidationError
		switch {
		case errors.Is(err, intake.ErrIneligible):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "ineligible", "message": intake.IneligibleMessage})
		case errors.As(err, &verr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "details": verr.Fields})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	assessment, err := s.assess(c.Request.Context(), features)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "risk calculation failed"})
		return
	}

	c.JSON(http.StatusOK, riskResponse{
		DeathInHospital: assessment.DeathInHospital,
		ProlongedLOS:    assessment.ProlongedLOS,
		Display: map[string]string{
			model.DeathInHospital: model.FormatPercent(assessment.DeathInHospital),
			model.ProlongedLOS:    model.FormatPercent(assessment.ProlongedLOS),
		},
		Features: features,
	})
}

func (s *server) listOutcomes(c *gin.Context) {
	table, err := s.coeffs.Load(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "coefficients unavailable"})
		return
	}

	out := make([]outcomeInfo, 0, len(table.Outcomes))
	for _, name := range table.Names() {
		spec := table.Outcomes[name]
		features := make([]string, 0, len(spec.Coeffs))
		for k := range spec.Coeffs {
			features = append(features, k)
		}
		sort.Strings(features)
		out = append(out, outcomeInfo{Name: name, Intercept: spec.Intercept, Features: features})
	}
	c.JSON(http.StatusOK, gin.H{"outcomes": out})
}

// evaluate runs the eligibility gate, encoding and both models for one
// form submission.
func (s *server) evaluate(ctx context.Context, form intake.Admission) (model.Assessment, error) {
	features, err := intake.Prepare(form)
	if err != nil {
		return model.Assessment{}, err
	}
	return s.assess(ctx, features)
}

func (s *server) assess(ctx context.Context, features model.FeatureVector) (model.Assessment, error) {
	table, err := s.coeffs.Load(ctx)
	if err != nil {
		return model.Assessment{}, err
	}
	assessment, err := model.Assess(table, features)
	if err != nil {
		s.logger.Error("prediction failed", zap.Error(err))
		return model.Assessment{}, err
	}
	return assessment, nil
}

func defaultAdmission() intake.Admission {
	return intake.Admission{
		PrimaryCKD:    intake.AnswerYes,
		Sex:           intake.SexFemale,
		Age:           intake.DefaultAge,
		AdmissionType: intake.AdmissionEmergency,
		Month:         intake.Months[0],
	}
}

func newPageData(form intake.Admission) pageData {
	selected := make(map[string]bool, len(form.Comorbidities))
	for _, key := range form.Comorbidities {
		selected[key] = true
	}
	return pageData{
		View:              session.KindCollecting,
		Form:              form,
		Selected:          selected,
		IneligibleMessage: intake.IneligibleMessage,
		Ages:              intake.AgeOptions,
		Months:            intake.Months,
		Comorbidities:     intake.Comorbidities,
	}
}

// sessionID returns the caller's session ID, issuing a cookie when the
// request has none.
func sessionID(c *gin.Context) string {
	if id, err := c.Cookie(session.CookieName); err == nil && session.ValidID(id) {
		return id
	}
	id := session.NewID()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(session.CookieName, id, 0, "/", "", false, true)
	return id
}

func payloadError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
