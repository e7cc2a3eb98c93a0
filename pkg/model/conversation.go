package model

// Role is the conversation message role. Named MessageRole to avoid
// colliding with the table Role type in fingerprint.go.
type MessageRole string

const (
	MessageSystem    MessageRole = "system"
	MessageUser      MessageRole = "user"
	MessageAssistant MessageRole = "assistant"
)

// Message is one turn of conversation state. The caller owns the slice of
// messages across requests; the engine neither allocates nor mutates
// persistent session state.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// AgentKind is the closed variant replacing the source's three agent-name
// strings ("Conversational Agent", "Neo4j Engine", "NetworkX Engine").
type AgentKind string

const (
	AgentConversational AgentKind = "Conversational"
	AgentNeo4jEngine     AgentKind = "Neo4jEngine"
	AgentNetworkXEngine  AgentKind = "NetworkXEngine"
)

// ResponseMode is the three-valued shape the conversational JSON contract
// and the engine agents must agree on.
type ResponseMode string

const (
	ModeSummaryOnly    ResponseMode = "summary_only"
	ModeSQLOnly        ResponseMode = "sql_only"
	ModeSQLAndSummary  ResponseMode = "sql_and_summary"
)

// ChartSuggestion is the optional chart hint computed from a dataframe's
// column shape.
type ChartSuggestion string

const (
	ChartNone    ChartSuggestion = ""
	ChartBar     ChartSuggestion = "bar"
	ChartScatter ChartSuggestion = "scatter"
	ChartLine    ChartSuggestion = "line"
)

// ChatRequest is the single input to the conversational engine.
type ChatRequest struct {
	UserMessage string    `json:"user_message"`
	History     []Message `json:"history"`
	ClientID    string    `json:"client_id"`
	AgentName   AgentKind `json:"agent_name"`
	ModelName   string    `json:"model_name"`
}

// Dataframe is a tabular query result: ordered column names plus rows keyed
// by column name.
type Dataframe struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// ChatResponse is the single output of the conversational engine.
type ChatResponse struct {
	Mode            ResponseMode    `json:"mode"`
	Summary         string          `json:"summary,omitempty"`
	SQL             string          `json:"sql,omitempty"`
	ChartSuggestion ChartSuggestion `json:"chart_suggestion,omitempty"`
	Dataframe       *Dataframe      `json:"dataframe,omitempty"`
	Error           string          `json:"error,omitempty"`
	FullHistory     []Message       `json:"full_history"`
}
