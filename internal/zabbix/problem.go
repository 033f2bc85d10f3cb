package zabbix

// Problem is one entry of a problem.get reply, kept as Zabbix sends it:
// every scalar arrives as a JSON string and any of them may be missing.
type Problem struct {
	EventID       string `json:"eventid"`
	Source        string `json:"source"`
	Object        string `json:"object"`
	ObjectID      string `json:"objectid"`
	Clock         string `json:"clock"`
	NS            string `json:"ns"`
	REventID      string `json:"r_eventid"`
	RClock        string `json:"r_clock"`
	RNS           string `json:"r_ns"`
	CorrelationID string `json:"correlationid"`
	UserID        string `json:"userid"`
	Name          string `json:"name"`
	Acknowledged  string `json:"acknowledged"`
	Severity      string `json:"severity"`
	CauseEventID  string `json:"cause_eventid"`
	OpData        string `json:"opdata"`
	Suppressed    string `json:"suppressed"`

	Tags         []Tag         `json:"tags,omitempty"`
	Acknowledges []Acknowledge `json:"acknowledges,omitempty"`
}

type Tag struct {
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

type Acknowledge struct {
	AcknowledgeID string `json:"acknowledgeid"`
	UserID        string `json:"userid"`
	Clock         string `json:"clock"`
	Message       string `json:"message"`
	Action        string `json:"action"`
}
