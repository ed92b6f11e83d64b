package sarif

// The subset of SARIF 2.1.0 the converter reads. Unknown members are
// ignored by encoding/json.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema,omitempty"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool               tool                        `json:"tool"`
	Results            []result                    `json:"results"`
	OriginalURIBaseIDs map[string]artifactLocation `json:"originalUriBaseIds,omitempty"`
}

type tool struct {
	Driver toolComponent `json:"driver"`
}

type toolComponent struct {
	Name  string                `json:"name"`
	Rules []reportingDescriptor `json:"rules,omitempty"`
}

type reportingDescriptor struct {
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name,omitempty"`
	DefaultConfiguration *reportingConfiguration `json:"defaultConfiguration,omitempty"`
	Properties           properties              `json:"properties,omitempty"`
}

type reportingConfiguration struct {
	Level Level `json:"level,omitempty"`
}

type result struct {
	RuleID           string        `json:"ruleId,omitempty"`
	RuleIndex        *int          `json:"ruleIndex,omitempty"`
	Kind             Kind          `json:"kind,omitempty"`
	Level            Level         `json:"level,omitempty"`
	Message          message       `json:"message"`
	Locations        []location    `json:"locations,omitempty"`
	RelatedLocations []location    `json:"relatedLocations,omitempty"`
	CodeFlows        []codeFlow    `json:"codeFlows,omitempty"`
	Suppressions     []suppression `json:"suppressions,omitempty"`
	Properties       properties    `json:"properties,omitempty"`
}

type suppression struct {
	Kind string `json:"kind"`
}

type location struct {
	PhysicalLocation *physicalLocation `json:"physicalLocation,omitempty"`
	Message          *message          `json:"message,omitempty"`
}

type physicalLocation struct {
	ArtifactLocation *artifactLocation `json:"artifactLocation,omitempty"`
	Region           *region           `json:"region,omitempty"`
}

type artifactLocation struct {
	URI       string `json:"uri,omitempty"`
	URIBaseID string `json:"uriBaseId,omitempty"`
}

type region struct {
	StartLine   int `json:"startLine,omitempty"`
	StartColumn int `json:"startColumn,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}

type message struct {
	Text string `json:"text,omitempty"`
}

type codeFlow struct {
	ThreadFlows []threadFlow `json:"threadFlows"`
}

type threadFlow struct {
	Locations []threadFlowLocation `json:"locations"`
}

type threadFlowLocation struct {
	Location       *location  `json:"location,omitempty"`
	NestingLevel   int        `json:"nestingLevel,omitempty"`
	ExecutionOrder *int       `json:"executionOrder,omitempty"`
	Kinds          []string   `json:"kinds,omitempty"`
	Importance     Importance `json:"importance,omitempty"`
}

type properties map[string]any

// Level is the SARIF result level.
type Level string

// SARIF levels.
const (
	LevelNone    Level = "none"
	LevelNote    Level = "note"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Kind is the SARIF result kind.
type Kind string

// KindPass marks a rule evaluation that found nothing.
const KindPass Kind = "pass"

// Importance is the importance of a thread flow location.
type Importance string

// ImportanceUnimportant marks supporting thread flow steps.
const ImportanceUnimportant Importance = "unimportant"
