// Command contact-check screens a contact-form submission from a JSON file
// or stdin and prints the verdict. It exits 2 when the submission would be
// rejected.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mikey/contact-guard/internal/config"
	"github.com/mikey/contact-guard/internal/content"
	"github.com/mikey/contact-guard/internal/core"
	"github.com/mikey/contact-guard/internal/di"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

var errRejected = errors.New("submission rejected")

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		if errors.Is(err, errRejected) {
			os.Exit(2)
		}
		fmt.Printf("Error: %v\n", dig.RootCause(err))
		os.Exit(1)
	}
}

type report struct {
	Accepted     bool                   `json:"accepted"`
	Message      string                 `json:"message"`
	SchemaErrors []string               `json:"schemaErrors,omitempty"`
	Errors       []string               `json:"errors,omitempty"`
	Warnings     []string               `json:"warnings,omitempty"`
	Patterns     []string               `json:"detectedPatterns,omitempty"`
	IsSpam       bool                   `json:"isSpam"`
	Review       string                 `json:"review,omitempty"`
	Verdict      *core.ReviewVerdict    `json:"verdict,omitempty"`
	Sanitized    *content.SanitizedData `json:"sanitized,omitempty"`
	Duration     time.Duration          `json:"durationNs"`
}

func run(
	flags *di.CLIFlags,
	cfg *config.Config,
	logger *zap.Logger,
	validator *content.Validator,
	reviewer core.SubmissionReviewer,
) error {
	defer logger.Sync()

	if closer, ok := reviewer.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	reviewCfg, err := cfg.GetReview()
	if err != nil {
		return err
	}
	screener := core.NewScreener(validator, reviewer, logger, core.ServiceSettings{
		ReviewThreshold: reviewCfg.Threshold,
		ReviewTimeout:   reviewCfg.Timeout,
		TrustedDomains:  reviewCfg.TrustedDomains,
	})

	// Read submission from file or stdin
	var input io.Reader = os.Stdin
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		input = file
		logger.Debug("Reading submission from file", zap.String("file", flags.InputFile))
	} else {
		logger.Debug("Reading submission from stdin")
	}

	var req core.SubmissionRequest
	if err := json.NewDecoder(input).Decode(&req); err != nil {
		return fmt.Errorf("failed to parse submission JSON: %w", err)
	}

	start := time.Now()
	sc := screener.Screen(context.Background(), &req)

	r := report{
		Accepted:     sc.Accepted(),
		Message:      core.MessageSent,
		SchemaErrors: sc.SchemaErrors,
		Errors:       sc.Validation.Errors,
		Warnings:     sc.Validation.Warnings,
		Patterns:     sc.Validation.DetectedPatterns,
		IsSpam:       sc.Validation.IsSpam,
		Review:       sc.ReviewStatus,
		Verdict:      sc.Verdict,
		Sanitized:    sc.Validation.SanitizedData,
		Duration:     time.Since(start),
	}
	var secErr *core.SecurityError
	switch {
	case errors.As(sc.Err, &secErr):
		r.Message = secErr.Message
		r.IsSpam = r.IsSpam || secErr.Spam
	case sc.Err != nil:
		r.Message = "Invalid form data"
	}

	if flags.JSONOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return err
		}
	} else {
		printReport(&req, &r, reviewCfg.Provider)
	}

	if !r.Accepted {
		return errRejected
	}
	return nil
}

func printReport(req *core.SubmissionRequest, r *report, provider string) {
	fmt.Printf("\n=== Submission Summary ===\n")
	fmt.Printf("Name: %s\n", req.Name)
	fmt.Printf("Email: %s\n", req.Email)
	fmt.Printf("Subject: %s\n", req.Subject)
	fmt.Printf("Message length: %d characters\n", len([]rune(req.Message)))

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Accepted: %t\n", r.Accepted)
	fmt.Printf("Response: %s\n", r.Message)
	fmt.Printf("Is spam: %t\n", r.IsSpam)
	if len(r.SchemaErrors) > 0 {
		fmt.Printf("Schema errors: %s\n", strings.Join(r.SchemaErrors, "; "))
	}
	if len(r.Errors) > 0 {
		fmt.Printf("Errors: %s\n", strings.Join(r.Errors, "; "))
	}
	if len(r.Warnings) > 0 {
		fmt.Printf("Warnings: %s\n", strings.Join(r.Warnings, "; "))
	}
	if len(r.Patterns) > 0 {
		fmt.Printf("Detected patterns: %s\n", strings.Join(r.Patterns, ", "))
	}

	if r.Review != "" {
		fmt.Printf("\n=== LLM Review (%s) ===\n", provider)
		fmt.Printf("Status: %s\n", r.Review)
		if r.Verdict != nil {
			fmt.Printf("Spam score: %.4f\n", r.Verdict.Score)
			fmt.Printf("Confidence: %.4f\n", r.Verdict.Confidence)
			fmt.Printf("Explanation: %s\n", r.Verdict.Explanation)
			fmt.Printf("Model used: %s\n", r.Verdict.ModelUsed)
		}
	}
	fmt.Printf("Processing time: %v\n", r.Duration)
}
