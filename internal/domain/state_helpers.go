package domain

import (
	"maps"
	"slices"

	"dario.cat/mergo"
)

// UpdateState returns a copy of fields that shares no maps or slices with it.
func UpdateState(fields StateUpdate) StateUpdate {
	return StateUpdate{
		Errors:        slices.Clone(fields.Errors),
		RoutingFlags:  maps.Clone(fields.RoutingFlags),
		ArtifactPaths: maps.Clone(fields.ArtifactPaths),
		EvidenceRefs:  slices.Clone(fields.EvidenceRefs),
		GateDecisions: maps.Clone(fields.GateDecisions),
		EpicPrefix:    cloneString(fields.EpicPrefix),
		StoryID:       cloneString(fields.StoryID),
		SchemaVersion: cloneString(fields.SchemaVersion),
		Cleared:       slices.Clone(fields.Cleared),
	}
}

func UpdateArtifactPaths(current, incoming map[ArtifactType]string) map[ArtifactType]string {
	return mergeKeyed(current, incoming)
}

func UpdateRoutingFlags(current, incoming map[RoutingFlag]bool) map[RoutingFlag]bool {
	return mergeKeyed(current, incoming)
}

func UpdateGateDecisions(current, incoming map[GateType]GateDecision) map[GateType]GateDecision {
	return mergeKeyed(current, incoming)
}

func AddEvidenceRefs(current []EvidenceRef, incoming ...EvidenceRef) []EvidenceRef {
	return appendFresh(current, incoming)
}

func AddErrors(current []NodeError, incoming ...NodeError) []NodeError {
	return appendFresh(current, incoming)
}

// CreateErrorUpdate records err against nodeID. The update always carries
// the new error; the error log on state is append-only.
func CreateErrorUpdate(_ GraphState, nodeID string, err interface{}, opts ...NodeErrorOption) (StateUpdate, error) {
	nodeErr, cerr := CreateNodeError(nodeID, err, opts...)
	if cerr != nil {
		return StateUpdate{}, cerr
	}
	return StateUpdate{Errors: []NodeError{nodeErr}}, nil
}

// CreateBlockedUpdate is how a node signals that a supervisor must
// intervene. The recorded error is always non-recoverable.
func CreateBlockedUpdate(state GraphState, nodeID string, err interface{}, opts ...NodeErrorOption) (StateUpdate, error) {
	forced := append(slices.Clone(opts), WithRecoverable(false))

	update, cerr := CreateErrorUpdate(state, nodeID, err, forced...)
	if cerr != nil {
		return StateUpdate{}, cerr
	}
	update.RoutingFlags = map[RoutingFlag]bool{FlagBlocked: true}
	return update, nil
}

// CreateCompleteUpdate marks the node complete, carrying the artifact paths
// merged over those already on state and any new evidence.
func CreateCompleteUpdate(state GraphState, artifacts map[ArtifactType]string, evidence ...EvidenceRef) StateUpdate {
	update := StateUpdate{
		RoutingFlags: map[RoutingFlag]bool{FlagComplete: true},
	}
	if len(artifacts) > 0 {
		update.ArtifactPaths = UpdateArtifactPaths(state.ArtifactPaths, artifacts)
	}
	if len(evidence) > 0 {
		update.EvidenceRefs = AddEvidenceRefs(nil, evidence...)
	}
	return update
}

// MergeStateUpdates folds updates left to right. Sequences concatenate, maps
// merge key-wise with later keys winning, and later non-nil scalars win. A
// field cleared by a later update discards what earlier updates set for it
// and stays cleared in the result, so the fold is associative.
func MergeStateUpdates(updates ...StateUpdate) StateUpdate {
	var merged StateUpdate
	for i, u := range updates {
		if i == 0 {
			merged = UpdateState(u)
			continue
		}
		merged = mergePair(merged, u)
	}
	return merged
}

func mergePair(left, right StateUpdate) StateUpdate {
	out := StateUpdate{Cleared: unionFields(left.Cleared, right.Cleared)}

	if right.Clears(FieldErrors) {
		out.Errors = slices.Clone(right.Errors)
	} else {
		out.Errors = AddErrors(left.Errors, right.Errors...)
	}
	if right.Clears(FieldEvidenceRefs) {
		out.EvidenceRefs = slices.Clone(right.EvidenceRefs)
	} else {
		out.EvidenceRefs = AddEvidenceRefs(left.EvidenceRefs, right.EvidenceRefs...)
	}
	if right.Clears(FieldRoutingFlags) {
		out.RoutingFlags = maps.Clone(right.RoutingFlags)
	} else {
		out.RoutingFlags = UpdateRoutingFlags(left.RoutingFlags, right.RoutingFlags)
	}
	if right.Clears(FieldArtifactPaths) {
		out.ArtifactPaths = maps.Clone(right.ArtifactPaths)
	} else {
		out.ArtifactPaths = UpdateArtifactPaths(left.ArtifactPaths, right.ArtifactPaths)
	}
	if right.Clears(FieldGateDecisions) {
		out.GateDecisions = maps.Clone(right.GateDecisions)
	} else {
		out.GateDecisions = UpdateGateDecisions(left.GateDecisions, right.GateDecisions)
	}

	out.EpicPrefix = laterScalar(left.EpicPrefix, right.EpicPrefix, right.Clears(FieldEpicPrefix))
	out.StoryID = laterScalar(left.StoryID, right.StoryID, right.Clears(FieldStoryID))
	out.SchemaVersion = laterScalar(left.SchemaVersion, right.SchemaVersion, right.Clears(FieldSchemaVersion))
	return out
}

func mergeKeyed[K comparable, V any](current, incoming map[K]V) map[K]V {
	if current == nil && incoming == nil {
		return nil
	}

	out := make(map[K]V, len(current)+len(incoming))
	maps.Copy(out, current)
	if err := mergo.Merge(&out, incoming, mergo.WithOverride); err != nil {
		maps.Copy(out, incoming)
	}
	return out
}

func appendFresh[T any](current, incoming []T) []T {
	if current == nil && incoming == nil {
		return nil
	}

	out := make([]T, 0, len(current)+len(incoming))
	out = append(out, current...)
	return append(out, incoming...)
}

func laterScalar(left, right *string, cleared bool) *string {
	if right != nil || cleared {
		return cloneString(right)
	}
	return cloneString(left)
}

func unionFields(left, right []StateField) []StateField {
	if left == nil && right == nil {
		return nil
	}

	out := make([]StateField, 0, len(left)+len(right))
	for _, f := range slices.Concat(left, right) {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func StringPtr(s string) *string {
	return &s
}
