package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	categoryService "github.com/storesync/storesync/internal/category/service"
)

type mappingReport struct {
	Categories int              `json:"categories"`
	Mapped     int              `json:"mapped"`
	Fallback   int64            `json:"fallback"`
	Resolved   map[string]int64 `json:"resolved,omitempty"`
}

// RunCheckMapping loads and validates the category mapping at bucketURL/key and
// optionally resolves the given marketplace categories against it.
func RunCheckMapping(
	ctx context.Context,
	logger *slog.Logger,
	writer io.Writer,
	bucketURL string,
	key string,
	resolve []string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("checking category mapping",
		slog.String("url", bucketURL),
		slog.String("key", key),
	)

	mapping, err := categoryService.Load(ctx, bucketURL, key)
	if err != nil {
		return fmt.Errorf("invalid category mapping: %w", err)
	}
	resolver, err := categoryService.NewResolver(mapping)
	if err != nil {
		return fmt.Errorf("invalid category mapping: %w", err)
	}

	report := mappingReport{
		Categories: len(mapping.Categories),
		Mapped:     resolver.Mapped(),
		Fallback:   resolver.Fallback(),
	}
	if len(resolve) > 0 {
		report.Resolved = make(map[string]int64, len(resolve))
		for _, id := range resolve {
			report.Resolved[id] = resolver.Resolve(id)
		}
	}

	if format == "json" {
		return writeJSON(writer, report)
	}

	_, _ = fmt.Fprintln(writer, "Category mapping is valid")
	_, _ = fmt.Fprintf(writer, "Storefront categories: %d\n", report.Categories)
	_, _ = fmt.Fprintf(writer, "Mapped marketplace categories: %d\n", report.Mapped)
	_, _ = fmt.Fprintf(writer, "Fallback: %d (%s)\n", report.Fallback, resolver.Name(report.Fallback))
	for _, id := range resolve {
		target := report.Resolved[id]
		_, _ = fmt.Fprintf(writer, "%s -> %d (%s)\n", id, target, resolver.Name(target))
	}
	return nil
}
