package domain

import "time"

// Core scan models. JSON names are the wire shape served by the HTTP adapter
// and stored verbatim in the history tables.

type Verdict string

const (
	VerdictSafe     Verdict = "Safe"
	VerdictCaution  Verdict = "Caution"
	VerdictCritical Verdict = "Critical"
	VerdictUnknown  Verdict = "Unknown"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "High"
	ConfidenceMedium Confidence = "Medium"
	ConfidenceLow    Confidence = "Low"
)

// Outcome is the result of one provider call. Data is always usable, even
// when Success is false.
type Outcome[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

func Succeeded[T any](v T) Outcome[T] { return Outcome[T]{Success: true, Data: v} }

func Failed[T any](fallback T) Outcome[T] { return Outcome[T]{Data: fallback} }

type TLSPosture struct {
	IsValid       bool   `json:"isValid"`
	Issuer        string `json:"issuer"`
	DaysRemaining int    `json:"daysRemaining"`
	Secure        bool   `json:"secure"`
}

type SecurityHeaders struct {
	HSTS   bool `json:"hsts"`
	CSP    bool `json:"csp"`
	XFrame bool `json:"xFrame"`
}

type Reputation struct {
	MaliciousCount int      `json:"maliciousCount"`
	Platform       string   `json:"platform"`
	Details        []string `json:"details,omitempty"`
}

type DomainAge struct {
	AgeYears float64 `json:"ageYears"`
	Label    string  `json:"label"`
}

type ConsensusStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Clean      int `json:"clean"`
	Undetected int `json:"undetected"`
	Total      int `json:"total"`
}

type DomainMetadata struct {
	CreationDate   string         `json:"creationDate"`
	AgeYears       float64        `json:"ageYears"`
	Registrar      string         `json:"registrar"`
	ServerCountry  string         `json:"serverCountry"`
	ConsensusStats ConsensusStats `json:"consensusStats"`
}

type Impersonation struct {
	Suspicious bool    `json:"isSuspicious"`
	Target     *string `json:"target"`
}

type Hosting struct {
	Country string `json:"country"`
	ISP     string `json:"isp"`
	IP      string `json:"ip"`
}

// Signals is everything collected about one target in a single scan.
type Signals struct {
	TLS           Outcome[TLSPosture]
	Headers       Outcome[SecurityHeaders]
	Reputation    Outcome[Reputation]
	Age           Outcome[DomainAge]
	Metadata      Outcome[DomainMetadata]
	Impersonation Outcome[Impersonation]
	Hosting       Hosting
}

// DataQuality records which tracked signals succeeded. Hosting is not tracked.
type DataQuality struct {
	SSL            bool `json:"sslSuccess"`
	Headers        bool `json:"headersSuccess"`
	Reputation     bool `json:"reputationSuccess"`
	DomainAge      bool `json:"domainAgeSuccess"`
	DomainMetadata bool `json:"domainMetadataSuccess"`
	Impersonation  bool `json:"impersonationSuccess"`
}

// TrackedSignals is the number of signals counted by DataQuality.
const TrackedSignals = 6

func QualityOf(s Signals) DataQuality {
	return DataQuality{
		SSL:            s.TLS.Success,
		Headers:        s.Headers.Success,
		Reputation:     s.Reputation.Success,
		DomainAge:      s.Age.Success,
		DomainMetadata: s.Metadata.Success,
		Impersonation:  s.Impersonation.Success,
	}
}

func (q DataQuality) Succeeded() int {
	n := 0
	for _, ok := range []bool{q.SSL, q.Headers, q.Reputation, q.DomainAge, q.DomainMetadata, q.Impersonation} {
		if ok {
			n++
		}
	}
	return n
}

type Details struct {
	SSL        TLSPosture      `json:"ssl"`
	Headers    SecurityHeaders `json:"headers"`
	Reputation Reputation      `json:"reputation"`
	Hosting    Hosting         `json:"hosting"`
}

type ScanResult struct {
	Hostname            string          `json:"hostname,omitempty"`
	Score               int             `json:"score"`
	RiskLevel           Verdict         `json:"riskLevel"`
	Confidence          Confidence      `json:"confidence"`
	DomainAge           string          `json:"domainAge"`
	ImpersonationTarget *string         `json:"impersonationTarget"`
	DomainMetadata      *DomainMetadata `json:"domainMetadata,omitempty"`
	RedFlags            []string        `json:"redFlags"`
	Summary             string          `json:"summary"`
	DataQuality         DataQuality     `json:"dataQuality"`
	Details             Details         `json:"details"`
	ScannedAt           time.Time       `json:"scannedAt"`
}

// Clone returns a deep copy so cached snapshots are never shared with callers.
func (r ScanResult) Clone() ScanResult {
	out := r
	if r.ImpersonationTarget != nil {
		t := *r.ImpersonationTarget
		out.ImpersonationTarget = &t
	}
	if r.DomainMetadata != nil {
		m := *r.DomainMetadata
		out.DomainMetadata = &m
	}
	if r.RedFlags != nil {
		out.RedFlags = append([]string(nil), r.RedFlags...)
	}
	if r.Details.Reputation.Details != nil {
		out.Details.Reputation.Details = append([]string(nil), r.Details.Reputation.Details...)
	}
	return out
}
