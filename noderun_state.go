package noderun

import "github.com/eleven-am/noderun/internal/domain"

type GraphState = domain.GraphState

type StateUpdate = domain.StateUpdate

type StateField = domain.StateField

type NodeError = domain.NodeError

type EvidenceRef = domain.EvidenceRef

type ArtifactType = domain.ArtifactType

type RoutingFlag = domain.RoutingFlag

type GateType = domain.GateType

type GateDecision = domain.GateDecision

const (
	ArtifactStoryDoc    = domain.ArtifactStoryDoc
	ArtifactElaboration = domain.ArtifactElaboration
	ArtifactProof       = domain.ArtifactProof
	ArtifactCodeReview  = domain.ArtifactCodeReview
	ArtifactQAVerify    = domain.ArtifactQAVerify
	ArtifactUIUXReview  = domain.ArtifactUIUXReview
	ArtifactQAGate      = domain.ArtifactQAGate
	ArtifactEvidence    = domain.ArtifactEvidence

	FlagProceed  = domain.FlagProceed
	FlagRetry    = domain.FlagRetry
	FlagBlocked  = domain.FlagBlocked
	FlagEscalate = domain.FlagEscalate
	FlagSkip     = domain.FlagSkip
	FlagComplete = domain.FlagComplete

	GateCodeReview = domain.GateCodeReview
	GateQAVerify   = domain.GateQAVerify
	GateUIUXReview = domain.GateUIUXReview
	GateQAGate     = domain.GateQAGate

	DecisionPass     = domain.DecisionPass
	DecisionConcerns = domain.DecisionConcerns
	DecisionFail     = domain.DecisionFail
	DecisionWaived   = domain.DecisionWaived
	DecisionPending  = domain.DecisionPending
)

type NodeErrorOption = domain.NodeErrorOption

var (
	WithCode        = domain.WithCode
	WithRecoverable = domain.WithRecoverable
	WithStack       = domain.WithStackConfig
	WithTimestamp   = domain.WithTimestamp
)

func NewGraphState(epicPrefix, storyID string) GraphState {
	return domain.NewGraphState(epicPrefix, storyID)
}

func UpdateState(fields StateUpdate) StateUpdate {
	return domain.UpdateState(fields)
}

func UpdateArtifactPaths(current, incoming map[ArtifactType]string) map[ArtifactType]string {
	return domain.UpdateArtifactPaths(current, incoming)
}

func UpdateRoutingFlags(current, incoming map[RoutingFlag]bool) map[RoutingFlag]bool {
	return domain.UpdateRoutingFlags(current, incoming)
}

func UpdateGateDecisions(current, incoming map[GateType]GateDecision) map[GateType]GateDecision {
	return domain.UpdateGateDecisions(current, incoming)
}

func AddEvidenceRefs(current []EvidenceRef, incoming ...EvidenceRef) []EvidenceRef {
	return domain.AddEvidenceRefs(current, incoming...)
}

func AddErrors(current []NodeError, incoming ...NodeError) []NodeError {
	return domain.AddErrors(current, incoming...)
}

func CreateNodeError(nodeID string, err interface{}, opts ...NodeErrorOption) (NodeError, error) {
	return domain.CreateNodeError(nodeID, err, opts...)
}

func CreateErrorUpdate(state GraphState, nodeID string, err interface{}, opts ...NodeErrorOption) (StateUpdate, error) {
	return domain.CreateErrorUpdate(state, nodeID, err, opts...)
}

func CreateBlockedUpdate(state GraphState, nodeID string, err interface{}, opts ...NodeErrorOption) (StateUpdate, error) {
	return domain.CreateBlockedUpdate(state, nodeID, err, opts...)
}

func CreateCompleteUpdate(state GraphState, artifacts map[ArtifactType]string, evidence ...EvidenceRef) StateUpdate {
	return domain.CreateCompleteUpdate(state, artifacts, evidence...)
}

func MergeStateUpdates(updates ...StateUpdate) StateUpdate {
	return domain.MergeStateUpdates(updates...)
}

func StringPtr(s string) *string {
	return domain.StringPtr(s)
}
