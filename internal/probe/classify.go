package probe

import (
	"strconv"

	"github.com/hamed0406/healthalert/internal/domain"
)

// Classify maps a raw exchange to a status using hc's ordered rules.
// It has no side effects and returns the same outcome for the same input.
func Classify(ex Exchange, hc *domain.HealthCheck) domain.Outcome {
	out := domain.Outcome{URL: ex.URL, Latency: ex.Latency}

	switch {
	case ex.TimedOut:
		out.Kind = domain.KindTimedOut
		out.Status = domain.StatusError
		if hc.Timeout != nil && hc.Timeout.Status != "" {
			out.Status = hc.Timeout.Status
		}
		return out

	case ex.Err != nil:
		out.Kind = domain.KindTransportError
		out.Status = domain.StatusError
		out.Detail = ex.Err.Error()
		return out
	}

	out.StatusCode = ex.StatusCode
	code := strconv.Itoa(ex.StatusCode)
	for _, rule := range hc.Rules {
		criteria, ok := matchRule(rule, code, ex.Body)
		if !ok {
			continue
		}
		out.Kind = domain.KindMatched
		out.Status = rule.Name
		out.Rule = rule.Name
		out.Criteria = criteria
		return out
	}

	out.Kind = domain.KindUnmatched
	out.Status = domain.StatusUnknown
	return out
}

// matchRule reports whether every pattern declared by rule matches, and
// which criteria took part.
func matchRule(rule domain.StatusRule, code, body string) ([]string, bool) {
	var criteria []string
	if rule.StatusPattern != nil {
		if !rule.StatusPattern.MatchString(code) {
			return nil, false
		}
		criteria = append(criteria, "status")
	}
	if rule.ContentPattern != nil {
		if !rule.ContentPattern.MatchString(body) {
			return nil, false
		}
		criteria = append(criteria, "content")
	}
	return criteria, true
}
