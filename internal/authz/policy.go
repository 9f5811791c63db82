package authz

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spec-kit/feedback-service/internal/domain"
)

// RequirementKind is the authentication tier a rule demands.
type RequirementKind int

const (
	Public RequirementKind = iota
	Authenticated
	RoleRequired
)

// Requirement is what a caller must present for a matched route.
type Requirement struct {
	Kind RequirementKind
	Role domain.Role
}

// RequirePublic, RequireAuthenticated and RequireRole build requirements.
func RequirePublic() Requirement        { return Requirement{Kind: Public} }
func RequireAuthenticated() Requirement { return Requirement{Kind: Authenticated} }
func RequireRole(role domain.Role) Requirement {
	return Requirement{Kind: RoleRequired, Role: role}
}

// ParseRequirement accepts "public", "authenticated" and "role:<name>".
func ParseRequirement(s string) (Requirement, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "public":
		return RequirePublic(), nil
	case s == "authenticated":
		return RequireAuthenticated(), nil
	case strings.HasPrefix(s, "role:"):
		role, err := domain.ParseRole(strings.TrimPrefix(s, "role:"))
		if err != nil {
			return Requirement{}, err
		}
		return RequireRole(role), nil
	default:
		return Requirement{}, fmt.Errorf("unknown requirement %q", s)
	}
}

func (r Requirement) String() string {
	switch r.Kind {
	case Public:
		return "public"
	case Authenticated:
		return "authenticated"
	default:
		return "role:" + string(r.Role)
	}
}

// AnyMethod matches every HTTP method.
const AnyMethod = "*"

// Rule binds a method and path pattern to a requirement.
type Rule struct {
	Method      string
	Pattern     Pattern
	Requirement Requirement
}

// NewRule builds a rule, normalizing the method.
func NewRule(method, pattern string, req Requirement) (Rule, error) {
	p, err := ParsePattern(pattern)
	if err != nil {
		return Rule{}, err
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = AnyMethod
	}
	return Rule{Method: method, Pattern: p, Requirement: req}, nil
}

func (r Rule) String() string {
	return fmt.Sprintf("%s %s -> %s", r.Method, r.Pattern, r.Requirement)
}

func (r Rule) matchesMethod(method string) bool {
	return methodCovers(r.Method, strings.ToUpper(method))
}

// methodCovers reports whether a rule method applies to a request method.
// HEAD is served by GET handlers, so GET rules govern it too.
func methodCovers(ruleMethod, method string) bool {
	switch {
	case ruleMethod == AnyMethod, ruleMethod == method:
		return true
	case ruleMethod == http.MethodGet && method == http.MethodHead:
		return true
	}
	return false
}

// Matches reports whether the rule applies to the request.
func (r Rule) Matches(method, requestPath string) bool {
	return r.matchesMethod(method) && r.Pattern.Match(requestPath)
}

// covers reports whether r matches every request other matches.
func (r Rule) covers(other Rule) bool {
	if other.Method == AnyMethod {
		if r.Method != AnyMethod {
			return false
		}
	} else if !methodCovers(r.Method, other.Method) {
		return false
	}
	return r.Pattern.Subsumes(other.Pattern)
}

// DenyReason explains a denied request.
type DenyReason int

const (
	DenyNone DenyReason = iota
	DenyNoIdentity
	DenyWrongRole
)

func (d DenyReason) String() string {
	switch d {
	case DenyNoIdentity:
		return "no identity"
	case DenyWrongRole:
		return "wrong role"
	default:
		return "none"
	}
}

// Decision is the outcome of evaluating a request against the policy.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Rule    Rule
	// Default is true when no rule matched and the fallback applied.
	Default bool
}

// Policy is an ordered rule table. The first matching rule decides; when
// none matches the fallback requirement applies. Policy is immutable.
type Policy struct {
	rules    []Rule
	fallback Requirement
}

// NewPolicy builds a policy over rules in evaluation order.
func NewPolicy(fallback Requirement, rules ...Rule) *Policy {
	return &Policy{rules: append([]Rule(nil), rules...), fallback: fallback}
}

// Rules returns a copy of the rule table.
func (p *Policy) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

// Fallback returns the requirement used when no rule matches.
func (p *Policy) Fallback() Requirement {
	return p.fallback
}

// Resolve returns the rule governing the request and whether it came from
// the table (false means the fallback applied).
func (p *Policy) Resolve(method, requestPath string) (Rule, bool) {
	for _, rule := range p.rules {
		if rule.Matches(method, requestPath) {
			return rule, true
		}
	}
	return Rule{Method: AnyMethod, Pattern: MustParsePattern("/**"), Requirement: p.fallback}, false
}

// Authorize evaluates the request for identity, which may be nil.
func (p *Policy) Authorize(method, requestPath string, identity *domain.Identity) Decision {
	rule, matched := p.Resolve(method, requestPath)
	decision := Decision{Rule: rule, Default: !matched}

	hasIdentity := identity != nil && !identity.IsZero()
	switch rule.Requirement.Kind {
	case Public:
		decision.Allowed = true
	case Authenticated:
		if hasIdentity {
			decision.Allowed = true
		} else {
			decision.Reason = DenyNoIdentity
		}
	case RoleRequired:
		switch {
		case !hasIdentity:
			decision.Reason = DenyNoIdentity
		case identity.Role == rule.Requirement.Role:
			decision.Allowed = true
		default:
			decision.Reason = DenyWrongRole
		}
	}
	return decision
}

// Shadow records a rule that can never match because an earlier rule
// already claims every request it would.
type Shadow struct {
	Index   int
	Rule    Rule
	ByIndex int
	ByRule  Rule
}

func (s Shadow) String() string {
	return fmt.Sprintf("rule #%d (%s) is unreachable behind rule #%d (%s)", s.Index, s.Rule, s.ByIndex, s.ByRule)
}

// Shadowed lists every unreachable rule in the table.
func (p *Policy) Shadowed() []Shadow {
	var out []Shadow
	for i, rule := range p.rules {
		for j := 0; j < i; j++ {
			if p.rules[j].covers(rule) {
				out = append(out, Shadow{Index: i, Rule: rule, ByIndex: j, ByRule: p.rules[j]})
				break
			}
		}
	}
	return out
}
