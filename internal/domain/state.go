package domain

import "slices"

const GraphStateSchemaVersion = "1.0.0"

type ArtifactType string

const (
	ArtifactStoryDoc    ArtifactType = "storyDoc"
	ArtifactElaboration ArtifactType = "elaboration"
	ArtifactProof       ArtifactType = "proof"
	ArtifactCodeReview  ArtifactType = "codeReview"
	ArtifactQAVerify    ArtifactType = "qaVerify"
	ArtifactUIUXReview  ArtifactType = "uiuxReview"
	ArtifactQAGate      ArtifactType = "qaGate"
	ArtifactEvidence    ArtifactType = "evidence"
)

type RoutingFlag string

const (
	FlagProceed  RoutingFlag = "proceed"
	FlagRetry    RoutingFlag = "retry"
	FlagBlocked  RoutingFlag = "blocked"
	FlagEscalate RoutingFlag = "escalate"
	FlagSkip     RoutingFlag = "skip"
	FlagComplete RoutingFlag = "complete"
)

type GateType string

const (
	GateCodeReview GateType = "codeReview"
	GateQAVerify   GateType = "qaVerify"
	GateUIUXReview GateType = "uiuxReview"
	GateQAGate     GateType = "qaGate"
)

type GateDecision string

const (
	DecisionPass     GateDecision = "PASS"
	DecisionConcerns GateDecision = "CONCERNS"
	DecisionFail     GateDecision = "FAIL"
	DecisionWaived   GateDecision = "WAIVED"
	DecisionPending  GateDecision = "PENDING"
)

type EvidenceRef struct {
	Type        string `json:"type" yaml:"type"`
	Path        string `json:"path" yaml:"path"`
	Timestamp   string `json:"timestamp" yaml:"timestamp"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// NodeError is appended to the workflow error log, never overwritten.
type NodeError struct {
	NodeID      string `json:"nodeId"`
	Message     string `json:"message"`
	Code        string `json:"code,omitempty"`
	Timestamp   string `json:"timestamp"`
	Stack       string `json:"stack,omitempty"`
	Recoverable bool   `json:"recoverable"`
}

type GraphState struct {
	SchemaVersion string                    `json:"schemaVersion"`
	EpicPrefix    string                    `json:"epicPrefix"`
	StoryID       string                    `json:"storyId"`
	ArtifactPaths map[ArtifactType]string   `json:"artifactPaths"`
	RoutingFlags  map[RoutingFlag]bool      `json:"routingFlags"`
	EvidenceRefs  []EvidenceRef             `json:"evidenceRefs"`
	GateDecisions map[GateType]GateDecision `json:"gateDecisions"`
	Errors        []NodeError               `json:"errors"`
}

func NewGraphState(epicPrefix, storyID string) GraphState {
	return GraphState{
		SchemaVersion: GraphStateSchemaVersion,
		EpicPrefix:    epicPrefix,
		StoryID:       storyID,
		ArtifactPaths: map[ArtifactType]string{},
		RoutingFlags:  map[RoutingFlag]bool{},
		EvidenceRefs:  []EvidenceRef{},
		GateDecisions: map[GateType]GateDecision{},
		Errors:        []NodeError{},
	}
}

type StateField string

const (
	FieldErrors        StateField = "errors"
	FieldRoutingFlags  StateField = "routingFlags"
	FieldArtifactPaths StateField = "artifactPaths"
	FieldEvidenceRefs  StateField = "evidenceRefs"
	FieldGateDecisions StateField = "gateDecisions"
	FieldEpicPrefix    StateField = "epicPrefix"
	FieldStoryID       StateField = "storyId"
	FieldSchemaVersion StateField = "schemaVersion"
)

// StateUpdate carries only the fields a node changed. A nil field means "no
// change"; a field listed in Cleared is reset before the update's own value
// for that field is applied.
type StateUpdate struct {
	Errors        []NodeError               `json:"errors,omitempty"`
	RoutingFlags  map[RoutingFlag]bool      `json:"routingFlags,omitempty"`
	ArtifactPaths map[ArtifactType]string   `json:"artifactPaths,omitempty"`
	EvidenceRefs  []EvidenceRef             `json:"evidenceRefs,omitempty"`
	GateDecisions map[GateType]GateDecision `json:"gateDecisions,omitempty"`
	EpicPrefix    *string                   `json:"epicPrefix,omitempty"`
	StoryID       *string                   `json:"storyId,omitempty"`
	SchemaVersion *string                   `json:"schemaVersion,omitempty"`
	Cleared       []StateField              `json:"cleared,omitempty"`
}

func (u StateUpdate) IsEmpty() bool {
	return u.Errors == nil && u.RoutingFlags == nil && u.ArtifactPaths == nil &&
		u.EvidenceRefs == nil && u.GateDecisions == nil && u.EpicPrefix == nil &&
		u.StoryID == nil && u.SchemaVersion == nil && len(u.Cleared) == 0
}

func (u StateUpdate) Clears(field StateField) bool {
	return slices.Contains(u.Cleared, field)
}

// Apply is the reference reducer: it returns the state that results from
// applying u to s, leaving both untouched.
func (s GraphState) Apply(u StateUpdate) GraphState {
	next := GraphState{
		SchemaVersion: s.SchemaVersion,
		EpicPrefix:    s.EpicPrefix,
		StoryID:       s.StoryID,
		ArtifactPaths: s.ArtifactPaths,
		RoutingFlags:  s.RoutingFlags,
		EvidenceRefs:  s.EvidenceRefs,
		GateDecisions: s.GateDecisions,
		Errors:        s.Errors,
	}

	for _, field := range u.Cleared {
		switch field {
		case FieldErrors:
			next.Errors = nil
		case FieldRoutingFlags:
			next.RoutingFlags = nil
		case FieldArtifactPaths:
			next.ArtifactPaths = nil
		case FieldEvidenceRefs:
			next.EvidenceRefs = nil
		case FieldGateDecisions:
			next.GateDecisions = nil
		case FieldEpicPrefix:
			next.EpicPrefix = ""
		case FieldStoryID:
			next.StoryID = ""
		case FieldSchemaVersion:
			next.SchemaVersion = ""
		}
	}

	next.Errors = AddErrors(next.Errors, u.Errors...)
	next.EvidenceRefs = AddEvidenceRefs(next.EvidenceRefs, u.EvidenceRefs...)
	next.RoutingFlags = UpdateRoutingFlags(next.RoutingFlags, u.RoutingFlags)
	next.ArtifactPaths = UpdateArtifactPaths(next.ArtifactPaths, u.ArtifactPaths)
	next.GateDecisions = UpdateGateDecisions(next.GateDecisions, u.GateDecisions)

	if u.EpicPrefix != nil {
		next.EpicPrefix = *u.EpicPrefix
	}
	if u.StoryID != nil {
		next.StoryID = *u.StoryID
	}
	if u.SchemaVersion != nil {
		next.SchemaVersion = *u.SchemaVersion
	}
	return next
}
