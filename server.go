package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mmdatafocus/autoservice_backend/config"
	"github.com/mmdatafocus/autoservice_backend/documents"
	"github.com/mmdatafocus/autoservice_backend/email"
	"github.com/mmdatafocus/autoservice_backend/middlewares"
	"github.com/mmdatafocus/autoservice_backend/store"
	"github.com/mmdatafocus/autoservice_backend/store/backend"
	"github.com/mmdatafocus/autoservice_backend/utils"
	"github.com/mmdatafocus/autoservice_backend/workflow"
	"github.com/sirupsen/logrus"
)

func openArtifactStore(ctx context.Context) (documents.ArtifactStore, func(), error) {
	cfg := config.GetArtifactConfig()
	switch cfg.Provider {
	case "local":
		return documents.NewLocalArtifactStore(cfg.Dir), func() {}, nil
	case "gcs":
		gcs, err := documents.NewGCSArtifactStore(ctx, cfg.GCSBucket, cfg.GCSPrefix, cfg.GCSCredentialsJSON)
		if err != nil {
			return nil, nil, err
		}
		return gcs, func() { _ = gcs.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown ARTIFACT_PROVIDER %q", cfg.Provider)
	}
}

// newInvoiceService applies the environment to the invoice workflow.
func newInvoiceService(st store.Store, artifacts documents.ArtifactStore, logger *logrus.Logger) *workflow.InvoiceService {
	svc := workflow.NewInvoiceService(st, logger)
	svc.Artifacts = artifacts
	svc.StrictTransitions = config.StrictInvoiceStatusTransitions()
	svc.MaxFollowUpAttempts = config.FollowUpMaxAttempts()
	svc.FollowUpStaleAfter = config.FollowUpStaleAfter()

	if lock := config.GetRedisLock(); lock != nil {
		svc.Locker = workflow.NewRedisLocker(lock)
	}
	if mailCfg := config.GetMailConfig(); mailCfg.Configured() {
		svc.Mailer = email.NewSMTPSender(mailCfg)
	} else {
		logger.WithFields(logrus.Fields{"field": "mail"}).Warn("SMTP_HOST or MAIL_FROM not set; invoice email disabled")
	}
	if path := svc.Business.LogoPath; path != "" {
		logo, err := documents.LoadLogo(path)
		if err != nil {
			config.LogError(logger, "Server", "newInvoiceService", "load business logo", path, err)
		} else {
			svc.Logo = logo
		}
	}
	return svc
}

func newRouter(a *api, st store.Store) *gin.Engine {
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header("x-correlation-id", cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) {
		if err := st.Ping(c.Request.Context()); err != nil {
			c.Status(http.StatusServiceUnavailable)
			return
		}
		c.Status(http.StatusNoContent)
	})

	r.Use(cors.New(corsConfig()))
	r.Use(middlewares.AuthMiddleware())
	r.Use(middlewares.LoaderMiddleware(st))
	r.Use(customErrorLogger(a.logger))
	r.Use(gin.Recovery())

	r.POST("/api/users/login", a.login)

	authed := r.Group("/api", middlewares.RequireAuth())

	invoices := authed.Group("/invoices")
	invoices.POST("", a.createInvoice)
	invoices.GET("", a.listInvoices)
	invoices.GET("/analytics", a.invoiceAnalytics)
	invoices.GET("/analytics/export", a.exportInvoiceAnalytics)
	invoices.GET("/all", a.listAllInvoices)
	invoices.GET("/:id", a.getInvoice)
	invoices.PUT("/:id", a.updateInvoice)
	invoices.DELETE("/:id", a.deleteInvoice)
	invoices.GET("/:id/pdf", a.invoicePDF)
	invoices.POST("/:id/email", a.emailInvoice)
	invoices.PUT("/:id/status", a.updateInvoiceStatus)

	customers := authed.Group("/customers")
	customers.GET("/:id", a.getCustomer)
	customers.PUT("/:id/next-services/:serviceId", a.updateNextService)
	customers.DELETE("/:id/next-services/:serviceId", a.removeNextService)

	// Ops tooling (admin only): inspect and replay customer follow-ups.
	admin := authed.Group("/admin")
	admin.GET("/follow-ups", a.listFollowUps)
	admin.POST("/follow-ups/:id/replay", a.replayFollowUp)

	r.NoRoute(customNotFoundHandler)
	return r
}

func corsConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	// Production requires an explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "x-correlation-id")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "x-correlation-id")
	return corsConfig
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	godotenv.Load()
	port := config.HTTPPort()
	logger := config.GetLogger()

	// Shutdown coordination.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	st, err := backend.Open(sigCtx)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "store"}).Fatal(err.Error())
	}
	defer st.Close()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		if err := st.Migrate(sigCtx); err != nil {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err.Error())
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping migrations on startup")
	}

	config.ConnectRedis(sigCtx)
	defer config.CloseRedis()

	artifacts, closeArtifacts, err := openArtifactStore(sigCtx)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "artifacts"}).Fatal(err.Error())
	}
	defer closeArtifacts()

	invoiceService := newInvoiceService(st, artifacts, logger)
	a := &api{
		invoices:  invoiceService,
		customers: workflow.NewCustomerService(st, logger),
		users:     workflow.NewUserService(st, logger),
		logger:    logger,
	}

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	if config.FollowUpProcessingEnabled() {
		go NewFollowUpProcessor(invoiceService, logger).Run(workerCtx)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: newRouter(a, st),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	logger.WithFields(logrus.Fields{
		"info":   "Connection Established",
		"driver": config.StoreDriver(),
	}).Info("listening on :", port)
	log.Println("Server started successfully")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while we're draining.
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}

// customErrorLogger is a custom Gin middleware that logs only errors
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only log when there are errors
		if len(c.Errors) > 0 && logger != nil {
			logger.WithFields(config.RequestFields(c.Request.Context())).WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.FullPath(),
				"status": c.Writer.Status(),
			}).Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
