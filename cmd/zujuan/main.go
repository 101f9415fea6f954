package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"zujuan/internal/ai"
	"zujuan/internal/auth"
	"zujuan/internal/captcha"
	"zujuan/internal/export"
	"zujuan/internal/handler"
	appI18n "zujuan/internal/i18n"
	"zujuan/internal/model"
	"zujuan/internal/queue"
	"zujuan/internal/rag"
	"zujuan/internal/store"
	"zujuan/internal/task"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "zujuan",
		Short: "Exam question bank and paper assembly server",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `zujuan --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "zujuan.db", "SQLite database path")
	f.String("ai-url", "", "OpenAI-compatible API base URL (empty disables AI features)")
	f.String("ai-key", "", "API key for the AI endpoint")
	f.String("ai-model", "qwen-vl-max", "Vision model name for question analysis")
	f.String("ai-embed-model", "text-embedding-v3", "Embedding model name")
	f.String("jwt-secret", "", "HMAC secret for access tokens (required)")
	f.Duration("jwt-ttl", 24*time.Hour, "Access token lifetime")
	f.String("invite-code", "", "Invite code required for teacher registration (empty disables)")
	f.Int64("max-upload", 16<<20, "Maximum upload size in bytes")
	f.StringP("lang", "l", "zh", "API message language (zh, en)")
	f.String("admin-password", "", "Initial admin password (or set ZUJUAN_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a saved paper as LaTeX, PDF, or DOCX",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "zujuan.db", "SQLite database path")
	f.String("paper-id", "", "Paper identifier (required)")
	f.String("format", "tex", "Output format (tex, pdf, docx)")
	f.Bool("with-answer", true, "Include answer blocks")
	f.Bool("with-explanation", true, "Include explanation blocks")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("paper-id")

	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("ZUJUAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("zujuan")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/zujuan")
	v.AddConfigPath("/etc/zujuan")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	secret := v.GetString("jwt-secret")
	if secret == "" {
		return fmt.Errorf("jwt secret is required: set --jwt-secret flag or ZUJUAN_JWT_SECRET env var")
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	aiClient := ai.New(
		v.GetString("ai-url"),
		v.GetString("ai-key"),
		v.GetString("ai-model"),
		v.GetString("ai-embed-model"),
	)
	if aiClient.Configured() {
		if err := aiClient.Ping(context.Background()); err != nil {
			return fmt.Errorf("AI health check: %w", err)
		}
		slog.Info("AI endpoint OK", "url", v.GetString("ai-url"), "model", v.GetString("ai-model"))
	} else {
		slog.Warn("AI endpoint not configured, analysis will return canned results")
	}

	ragSvc := rag.New(db, aiClient)
	queueSvc := queue.New(db, aiClient)
	if err := queueSvc.Restore(); err != nil {
		return fmt.Errorf("restore ingest queue: %w", err)
	}

	authSvc := auth.New(secret, v.GetDuration("jwt-ttl"), db)
	h := handler.New(db, aiClient, ragSvc, queueSvc, task.NewManager(), captcha.New(), authSvc, handler.Config{
		InviteCode:     v.GetString("invite-code"),
		MaxUploadBytes: v.GetInt64("max-upload"),
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", addr,
			"model", v.GetString("ai-model"),
			"ai_url", v.GetString("ai-url"),
			"lang", lang,
		)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	paper, err := db.GetPaper(v.GetString("paper-id"))
	if err != nil {
		return fmt.Errorf("load paper: %w", err)
	}
	if paper == nil {
		return fmt.Errorf("paper %s not found", v.GetString("paper-id"))
	}

	ids := make([]string, 0, len(paper.Questions))
	for _, pq := range paper.Questions {
		ids = append(ids, pq.QuestionID)
	}
	questions, err := db.GetQuestions(ids)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	opts := export.Options{
		IncludeAnswer:      v.GetBool("with-answer"),
		IncludeExplanation: v.GetBool("with-explanation"),
	}
	latex := export.BuildLaTeX(paper, questions, opts)

	var data []byte
	switch strings.ToLower(v.GetString("format")) {
	case "tex":
		data = []byte(latex)
	case "pdf":
		data, err = export.CompilePDF(context.Background(), latex)
		if err != nil {
			return fmt.Errorf("compile PDF: %w", err)
		}
	case "docx":
		data, err = export.BuildDOCX(paper, questions, opts)
		if err != nil {
			return fmt.Errorf("build DOCX: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q (want tex, pdf, or docx)", v.GetString("format"))
	}

	outPath := v.GetString("output")
	if outPath == "" || outPath == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	slog.Info("exported paper", "paper_id", paper.ID, "path", outPath, "bytes", len(data))
	return nil
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		slog.Warn("no users exist and no admin password set, skipping admin seed")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
