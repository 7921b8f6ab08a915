package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SamVia/quizzz/internal/explain"
	"github.com/SamVia/quizzz/internal/handler"
	appI18n "github.com/SamVia/quizzz/internal/i18n"
	"github.com/SamVia/quizzz/internal/loader"
	"github.com/SamVia/quizzz/internal/model"
	"github.com/SamVia/quizzz/internal/quiz"
	"github.com/SamVia/quizzz/internal/store"
	"github.com/SamVia/quizzz/internal/topics"
)

func main() {
	// A missing .env file is the normal case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quizzz",
		Short: "Multiple-choice quiz trainer with exam simulation",
	}

	serve := serveCmd()
	root.AddCommand(serve, topicsCmd(), checkCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `quizzz --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz web server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("dir", "d", ".", "Directory holding the question files (.csv, .xlsx)")
	f.String("db", ":memory:", "SQLite question bank path")
	f.StringP("lang", "l", "en", "Default UI language (en, it)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /quiz)")
	f.Bool("secure-cookies", false, "Set Secure flag on cookies")
	f.String("llm-url", "", "OpenAI-compatible API base URL for explanations (empty disables)")
	f.String("llm-key", "", "API key for the explanation model")
	f.String("llm-model", "llama3.2", "Explanation model name")
	f.Duration("llm-timeout", 30*time.Second, "Timeout of one explanation request")
	f.Int("exam-questions", quiz.DefaultExamRules.Questions, "Questions per simulated exam")
	f.Float64("exam-penalty", quiz.DefaultExamRules.Penalty, "Points deducted per wrong exam answer")
	f.Float64("exam-pass-mark", quiz.DefaultExamRules.PassMark, "Minimum final exam score to pass")
	addLogFlags(f)
	return cmd
}

func topicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List the topics found in the question directory",
		RunE:  runTopics,
	}
	f := cmd.Flags()
	f.StringP("dir", "d", ".", "Directory holding the question files (.csv, .xlsx)")
	addLogFlags(f)
	return cmd
}

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Validate question files",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck,
	}
	addLogFlags(cmd.Flags())
	return cmd
}

type flagSet interface {
	String(name, value, usage string) *string
}

func addLogFlags(f flagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
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

	v.SetEnvPrefix("QUIZZZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("quizzz")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/quizzz")
	v.AddConfigPath("/etc/quizzz")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func examRules(v *viper.Viper) (quiz.ExamRules, error) {
	rules := quiz.ExamRules{
		Questions: v.GetInt("exam-questions"),
		Penalty:   v.GetFloat64("exam-penalty"),
		PassMark:  v.GetFloat64("exam-pass-mark"),
	}
	if rules.Questions <= 0 {
		return rules, fmt.Errorf("exam-questions must be positive, got %d", rules.Questions)
	}
	if rules.Penalty < 0 {
		return rules, fmt.Errorf("exam-penalty must not be negative, got %v", rules.Penalty)
	}
	return rules, nil
}

func normalizeBasePath(p string) string {
	p = strings.TrimRight(p, "/")
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	rules, err := examRules(v)
	if err != nil {
		return err
	}

	// Open database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	dir := v.GetString("dir")
	rep, err := topics.Sync(db, dir)
	if err != nil {
		return fmt.Errorf("sync topics: %w", err)
	}
	slog.Info("topics synced", "dir", dir,
		"imported", rep.Imported, "unchanged", rep.Unchanged, "failed", rep.Failed, "removed", rep.Removed)

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	var explainer handler.Explainer
	if url := v.GetString("llm-url"); url != "" {
		explainer = explain.New(url, v.GetString("llm-key"), v.GetString("llm-model"), v.GetDuration("llm-timeout"))
		slog.Info("explanations enabled", "url", url, "model", v.GetString("llm-model"))
	}

	basePath := normalizeBasePath(v.GetString("base-path"))
	cfg := model.AppConfig{
		Dir:           dir,
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
	}

	ctrl := quiz.NewController(quiz.WithExamRules(rules), quiz.WithLogger(slog.Default()))
	h, err := handler.New(db, explainer, cfg, ctrl)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"dir", dir,
		"lang", lang,
		"exam_questions", rules.Questions,
		"exam_penalty", rules.Penalty,
		"exam_pass_mark", rules.PassMark,
		"base_path", basePath,
		"session", ctrl.ID(),
	)
	return http.ListenAndServe(addr, r)
}

func runTopics(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(":memory:")
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := topics.Sync(db, v.GetString("dir")); err != nil {
		return fmt.Errorf("sync topics: %w", err)
	}
	list, err := db.ListTopics()
	if err != nil {
		return err
	}
	total, err := db.QuestionCount()
	if err != nil {
		return err
	}
	synced, err := db.LastSync()
	if err != nil {
		return err
	}
	return printTopics(cmd.OutOrStdout(), list, total, synced)
}

func printTopics(w io.Writer, list []model.Topic, total int, synced time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tFILE\tQUESTIONS\tOPTIONS\tSTATUS")
	for _, t := range list {
		status := "ok"
		if t.LoadError != "" {
			status = t.LoadError
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", t.Title, t.Source, t.Count, t.Arity, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d questions in %d topics, scanned %s\n",
		total, len(list), synced.Local().Format(time.DateTime))
	return err
}

func runCheck(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)

	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		recs, err := loader.Load(path)
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "ok   %s: %d questions, %d options each\n", path, len(recs), len(recs[0].Options))
	}
	if failed > 0 {
		cmd.SilenceUsage = true
		return fmt.Errorf("%d of %d files failed validation", failed, len(args))
	}
	return nil
}
