package app

import (
	"acyclic/internal/core/errors"
	"acyclic/internal/ui/report"
	"fmt"
)

// Summary converts res into the terminal report model.
func (a *App) Summary(res Result) report.Summary {
	return report.Summary{
		Bundle:  res.Plan.Bundle,
		BuildID: res.BuildID,
		Modules: res.Plan.Graph.Len(),
		Edges:   res.Plan.Graph.EdgeCount(),
		Roots:   len(res.Plan.Roots),
		Order:   res.Plan.Order,
		Cuts:    res.Plan.Cuts,
		Labels:  res.Plan.Labels,
		Diff:    res.Diff,
		Written: res.Written,
		Elapsed: res.Elapsed,
	}
}

func (a *App) Render(res Result) string {
	return report.Render(a.Summary(res))
}

// RenderError formats a build failure, leading with the error code when
// there is one.
func RenderError(err error) string {
	if code, ok := errors.CodeOf(err); ok {
		return fmt.Sprintf("build failed (%s): %v", code, err)
	}
	return fmt.Sprintf("build failed: %v", err)
}
