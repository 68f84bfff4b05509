// Package risk turns collected signals into a scored verdict.
package risk

import (
	"fmt"
	"strings"

	"trustscan/internal/domain"
)

// Risk points added (or removed) per signal. The score is 100 minus the total.
const (
	confirmedThreatRisk = 100
	suspiciousRisk      = 15
	newDomainRisk       = 50
	youngDomainRisk     = 20
	establishedBonus    = -10
	impersonationRisk   = 100
	invalidTLSRisk      = 40
	missingHSTSRisk     = 5

	confirmedThreshold = 3

	newDomainYears   = 0.08
	youngDomainYears = 0.5
	establishedYears = 1

	criticalMax = 40
	cautionMax  = 70

	// below this accumulated risk the summary reports no significant threats
	quietRisk = 20
)

// Aggregate scores a completed signal collection. It is pure: the same
// inputs always produce the same result. Hostname and ScannedAt are left for
// the caller to stamp.
func Aggregate(s domain.Signals, q domain.DataQuality) domain.ScanResult {
	var (
		risk  int
		flags = []string{}
	)

	malicious := s.Reputation.Data.MaliciousCount
	switch {
	case !s.Reputation.Success:
		flags = append(flags, "Reputation check unavailable - verdict based on limited data")
	case malicious >= confirmedThreshold:
		risk += confirmedThreatRisk
		flags = append(flags, fmt.Sprintf("CONFIRMED THREAT: Flagged by %d vendors", malicious))
	case malicious > 0:
		risk += suspiciousRisk
		flags = append(flags, fmt.Sprintf("Suspicious Activity: %d flags (Likely Heuristic Noise)", malicious))
	}

	age := s.Age.Data.AgeYears
	switch {
	case age < newDomainYears:
		risk += newDomainRisk
		flags = append(flags, "New Domain (< 1 Month Old) - High Risk")
	case age < youngDomainYears:
		risk += youngDomainRisk
		flags = append(flags, "Young Domain (< 6 Months)")
	case age > establishedYears:
		risk += establishedBonus
	}

	imp := s.Impersonation.Data
	if imp.Suspicious {
		risk += impersonationRisk
		flags = append(flags, "IMPERSONATION DETECTED: Mimicking "+targetName(imp.Target))
	}

	if !s.TLS.Data.IsValid {
		risk += invalidTLSRisk
		flags = append(flags, "Invalid SSL")
	}
	if !s.Headers.Data.HSTS {
		risk += missingHSTSRisk
	}

	score := clamp(100-risk, 0, 100)
	verdict := verdictFor(score)
	succeeded := q.Succeeded()
	confidence := confidenceFor(succeeded)

	res := domain.ScanResult{
		Score:       score,
		RiskLevel:   verdict,
		Confidence:  confidence,
		DomainAge:   s.Age.Data.Label,
		RedFlags:    flags,
		DataQuality: q,
		Details: domain.Details{
			SSL:        s.TLS.Data,
			Headers:    s.Headers.Data,
			Reputation: s.Reputation.Data,
			Hosting:    s.Hosting,
		},
	}
	if imp.Suspicious && imp.Target != nil {
		t := *imp.Target
		res.ImpersonationTarget = &t
	}
	if s.Metadata.Success {
		md := s.Metadata.Data
		res.DomainMetadata = &md
	}
	res.Summary = summarize(s, verdict, confidence, succeeded, risk)
	return res
}

// Failed is the result served when the engine itself breaks after validation.
func Failed(hostname string) domain.ScanResult {
	return domain.ScanResult{
		Hostname:   hostname,
		Score:      0,
		RiskLevel:  domain.VerdictUnknown,
		Confidence: domain.ConfidenceLow,
		DomainAge:  domain.UnknownAge.Label,
		RedFlags:   []string{"Scan Failed", "Engine Error"},
		Summary:    "Critical failure in Weighted Risk Engine.",
	}
}

func summarize(s domain.Signals, verdict domain.Verdict, confidence domain.Confidence, succeeded, risk int) string {
	parts := []string{fmt.Sprintf("VERDICT: %s. Domain is %s.", strings.ToUpper(string(verdict)), s.Age.Data.Label)}

	if s.Metadata.Success {
		md := s.Metadata.Data
		if md.ServerCountry != "" && md.ServerCountry != "XX" {
			parts = append(parts, fmt.Sprintf("Hosted in %s.", md.ServerCountry))
		}
		if md.Registrar != "" && md.Registrar != "Unknown" {
			parts = append(parts, fmt.Sprintf("Registrar: %s.", md.Registrar))
		}
		if c := md.ConsensusStats; c.Malicious > 0 {
			parts = append(parts, fmt.Sprintf("%d/%d security vendors flagged as malicious.", c.Malicious, c.Total))
		}
	}
	if imp := s.Impersonation.Data; imp.Suspicious {
		parts = append(parts, fmt.Sprintf("Alert: Potential impersonation of %s.", targetName(imp.Target)))
	}
	switch {
	case s.Reputation.Data.MaliciousCount >= confirmedThreshold:
		parts = append(parts, "Malware signatures confirmed.")
	case risk < quietRisk:
		parts = append(parts, "No significant threats detected.")
	}

	summary := strings.Join(parts, " ")
	if confidence != domain.ConfidenceHigh {
		summary += fmt.Sprintf(" [%s Confidence - %d/%d checks successful]", confidence, succeeded, domain.TrackedSignals)
	}
	return summary
}

func verdictFor(score int) domain.Verdict {
	switch {
	case score <= criticalMax:
		return domain.VerdictCritical
	case score <= cautionMax:
		return domain.VerdictCaution
	default:
		return domain.VerdictSafe
	}
}

func confidenceFor(succeeded int) domain.Confidence {
	// integer form of succeeded/6 >= 0.8 and >= 0.5
	switch {
	case succeeded*10 >= domain.TrackedSignals*8:
		return domain.ConfidenceHigh
	case succeeded*2 >= domain.TrackedSignals:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

func targetName(t *string) string {
	if t == nil || *t == "" {
		return "unknown brand"
	}
	return *t
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
