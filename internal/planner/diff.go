package planner

import "sort"

// ManifestDiff reports what a catalog or dataset-schema change added or
// removed from a plan's capability manifest, used by drift tests across
// catalog versions.
type ManifestDiff struct {
	AddedSources, RemovedSources         []string
	AddedFields, RemovedFields           []string
	AddedOperators, RemovedOperators     []string
	AddedIndicators, RemovedIndicators   []string
}

func (d ManifestDiff) Empty() bool {
	return len(d.AddedSources) == 0 && len(d.RemovedSources) == 0 &&
		len(d.AddedFields) == 0 && len(d.RemovedFields) == 0 &&
		len(d.AddedOperators) == 0 && len(d.RemovedOperators) == 0 &&
		len(d.AddedIndicators) == 0 && len(d.RemovedIndicators) == 0
}

// Diff compares two plans' capability manifests, e.g. the same IR planned
// against catalog versions before and after a change.
func Diff(before, after *Plan) ManifestDiff {
	return ManifestDiff{
		AddedSources:      sliceDiff(after.CapabilityManifest.Sources, before.CapabilityManifest.Sources),
		RemovedSources:    sliceDiff(before.CapabilityManifest.Sources, after.CapabilityManifest.Sources),
		AddedFields:       sliceDiff(after.CapabilityManifest.Fields, before.CapabilityManifest.Fields),
		RemovedFields:     sliceDiff(before.CapabilityManifest.Fields, after.CapabilityManifest.Fields),
		AddedOperators:    sliceDiff(after.CapabilityManifest.Operators, before.CapabilityManifest.Operators),
		RemovedOperators:  sliceDiff(before.CapabilityManifest.Operators, after.CapabilityManifest.Operators),
		AddedIndicators:   sliceDiff(after.CapabilityManifest.Indicators, before.CapabilityManifest.Indicators),
		RemovedIndicators: sliceDiff(before.CapabilityManifest.Indicators, after.CapabilityManifest.Indicators),
	}
}

// sliceDiff returns the sorted elements of a not present in b.
func sliceDiff(a, b []string) []string {
	inB := map[string]bool{}
	for _, v := range b {
		inB[v] = true
	}
	var out []string
	for _, v := range a {
		if !inB[v] {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
