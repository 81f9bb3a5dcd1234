// Dev harness: classify and extract a single OCR text file against a
// configured LLM and a local sqlite store, printing the JSON results.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/paperlens/docparse/constants"
	"github.com/paperlens/docparse/internal/classify"
	"github.com/paperlens/docparse/internal/common"
	"github.com/paperlens/docparse/internal/entity"
	"github.com/paperlens/docparse/internal/export"
	"github.com/paperlens/docparse/internal/extract"
	"github.com/paperlens/docparse/internal/learning"
	"github.com/paperlens/docparse/internal/llm/openai"
	"github.com/paperlens/docparse/internal/repository"
	"github.com/paperlens/docparse/internal/schema"
	"github.com/paperlens/docparse/internal/tools"
	"github.com/paperlens/docparse/internal/validation"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	textPath := flag.String("text", "", "path to OCR text file")
	docTypeArg := flag.String("type", "", "skip classification, extract as this type")
	xlsxPath := flag.String("xlsx", "", "also write the extraction result to this XLSX file")
	flag.Parse()

	if *textPath == "" {
		logger.Error("usage: docparse -text <ocr.txt> [-type <DocumentType>]")
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if cfg.Database.DSN == "" && cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "./docparse.db"
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	raw, err := os.ReadFile(*textPath)
	if err != nil {
		logger.Error("read text file", "path", *textPath, "error", err)
		os.Exit(1)
	}
	ocrText := string(raw)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var (
		corrections repository.CorrectionLog
		thresholds  repository.ThresholdStore
		usageLog    repository.ToolUsageLog
	)
	if cfg.Database.DSN != "" {
		pool, err := repository.Open(ctx, repository.Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
		if err != nil {
			logger.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
			logger.Error("postgres ping", "error", err)
			os.Exit(1)
		}
		corrections = repository.NewPGCorrectionLog(pool, logger)
		thresholds = repository.NewPGThresholdStore(pool, logger)
		usageLog = repository.NewPGToolUsageLog(pool, logger)
	} else {
		db, err := repository.OpenSQLite(ctx, cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Error("open sqlite", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Warn("sqlite close error", "error", err)
			}
		}()
		corrections = repository.NewSQLiteCorrectionLog(db, logger)
		thresholds = repository.NewSQLiteThresholdStore(db, logger)
		usageLog = repository.NewSQLiteToolUsageLog(db, logger)
	}

	schemas := schema.NewStore()
	validator, err := validation.NewService(schemas, logger)
	if err != nil {
		logger.Error("build validator", "error", err)
		os.Exit(1)
	}

	learningSvc := learning.NewService(corrections, nil, logger)
	registry := tools.NewRegistry(usageLog, logger)
	if err := registry.Register(learning.NewRetrievalTool(learningSvc)); err != nil {
		logger.Error("register retrieval tool", "error", err)
		os.Exit(1)
	}

	client := openai.NewClient(openai.Config{
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	classifier := classify.NewService(client, registry, learningSvc, thresholds, schemas,
		classify.Config{TruncateChars: cfg.Pipeline.TruncateChars}, logger)
	extractor := extract.NewService(client, schemas, validator, learningSvc, thresholds,
		extract.Config{TruncateChars: cfg.Pipeline.TruncateChars}, logger)

	docID := uuid.New()
	docType := constants.Unknown

	if *docTypeArg != "" {
		dt, ok := constants.ParseDocumentType(*docTypeArg)
		if !ok {
			logger.Error("unknown document type", "arg", *docTypeArg)
			os.Exit(2)
		}
		docType = dt
	} else {
		cls, err := classifier.Classify(ctx, ocrText, docID)
		if err != nil {
			logger.Error("classify failed", "error", err)
			os.Exit(1)
		}
		printJSON(cls)
		docType = cls.DocType
	}

	result, err := extractor.Extract(ctx, ocrText, docType, docID, nil)
	if err != nil {
		logger.Error("extract failed", "error", err)
		os.Exit(1)
	}
	printJSON(result)

	if *xlsxPath != "" {
		b, err := export.NewService(logger).ResultsXLSX([]entity.ExtractionResult{*result})
		if err != nil {
			logger.Error("xlsx export failed", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxPath, b, 0o644); err != nil {
			logger.Error("write xlsx", "path", *xlsxPath, "error", err)
			os.Exit(1)
		}
		logger.Info("xlsx written", "path", *xlsxPath, "bytes", len(b))
	}
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		slog.Error("marshal result", "error", err)
		return
	}
	fmt.Println(string(b))
}
