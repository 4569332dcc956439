package manifest

import (
	"fmt"

	"github.com/morezero/plex-mcp-server/pkg/registry"
	"github.com/morezero/plex-mcp-server/pkg/semver"
)

// Check compares the current catalog with a published manifest. Existing
// names, tiers, parameter order and types and declared return fields must
// survive; new commands require a version bump.
func Check(published, current *Manifest) (*Report, error) {
	cmp, err := semver.Compare(current.Version, published.Version)
	if err != nil {
		return nil, err
	}
	major, err := semver.IsBreakingChange(published.Version, current.Version)
	if err != nil {
		return nil, err
	}
	report := &Report{
		Published: published.Version,
		Current:   current.Version,
		MajorBump: major && cmp > 0,
	}

	for i := range published.Commands {
		prev := &published.Commands[i]
		next := current.Command(prev.Name)
		if next == nil {
			report.add(CommandRemoved, prev.Name, "command is no longer registered")
			continue
		}
		if prev.Tier != next.Tier {
			report.add(TierChanged, prev.Name, fmt.Sprintf("tier changed from %s to %s", prev.Tier, next.Tier))
		}
		checkParams(report, prev, next)
		checkReturns(report, prev, next)
	}

	for _, c := range current.Commands {
		if published.Command(c.Name) == nil {
			report.Added = append(report.Added, c.Name)
		}
	}
	if cmp < 0 {
		report.add(VersionNotBumped, "", fmt.Sprintf("version %s is older than published %s", current.Version, published.Version))
	} else if len(report.Added) > 0 && cmp == 0 {
		report.add(VersionNotBumped, "", fmt.Sprintf("%d commands added without raising version %s", len(report.Added), current.Version))
	}
	return report, nil
}

func (r *Report) add(kind, command, detail string) {
	r.Violations = append(r.Violations, Violation{Kind: kind, Command: command, Detail: detail})
}

func paramIndex(params []registry.Param, name string) int {
	for i, p := range params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func checkParams(r *Report, prev, next *registry.CommandInfo) {
	for i, p := range prev.Params {
		j := paramIndex(next.Params, p.Name)
		switch {
		case j < 0:
			r.add(ParamRemoved, prev.Name, fmt.Sprintf("parameter '%s' was removed", p.Name))
			continue
		case j != i:
			r.add(ParamReordered, prev.Name, fmt.Sprintf("parameter '%s' moved from position %d to %d", p.Name, i, j))
		}
		q := next.Params[j]
		if q.Type != p.Type {
			r.add(ParamRetyped, prev.Name, fmt.Sprintf("parameter '%s' changed type from %s to %s", p.Name, p.Type, q.Type))
		}
		if p.Optional && !q.Optional {
			r.add(ParamRequired, prev.Name, fmt.Sprintf("parameter '%s' is now required", p.Name))
		}
	}
	for _, q := range next.Params {
		if !q.Optional && paramIndex(prev.Params, q.Name) < 0 {
			r.add(ParamRequired, prev.Name, fmt.Sprintf("new parameter '%s' is required", q.Name))
		}
	}
}

func checkReturns(r *Report, prev, next *registry.CommandInfo) {
	have := make(map[string]bool, len(next.Returns))
	for _, f := range next.Returns {
		have[f] = true
	}
	for _, f := range prev.Returns {
		if !have[f] {
			r.add(ReturnRemoved, prev.Name, fmt.Sprintf("return field '%s' was removed", f))
		}
	}
}
