/*
Package factory provides JSON to Go leave-policy conversion.

PURPOSE:
  Converts JSON policy definitions into leave.LeavePolicy values. This
  enables policy configuration without code changes - HR can define
  notice windows, span caps and blackout periods in JSON, and the
  factory creates the proper Go structs.

JSON SCHEMA:
  {
    "type": "casual",
    "display_name": "Casual Leave",
    "entitled_days": 12,
    "min_notice_days": 2,
    "max_consecutive_days": 5,
    "count_weekends": false,
    "count_holidays": false,
    "blackouts": [
      {"start": "2025-12-24", "end": "2025-12-31"}
    ]
  }

KEY FEATURES:
  - Validates documents against a JSON Schema before decoding
  - Rejects unknown leave types and malformed dates
  - Ships presets matching the default entitlements

USAGE:
  factory := NewPolicyFactory()
  policy, entitled, err := factory.ParsePolicy(factory.CasualLeaveJSON())

SEE ALSO:
  - leave/policy.go: LeavePolicy type and chargeable-day computation
  - store/sqlite: persists parsed policies
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"

	"github.com/pixie/hr-copilot/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a leave policy. EntitledDays is
// the annual grant used when seeding a new employee's balance; it is not
// part of leave.LeavePolicy itself.
type PolicyJSON struct {
	Type               string         `json:"type"`
	DisplayName        string         `json:"display_name"`
	EntitledDays       float64        `json:"entitled_days"`
	MinNoticeDays      int            `json:"min_notice_days,omitempty"`
	MaxConsecutiveDays int            `json:"max_consecutive_days,omitempty"`
	CountWeekends      bool           `json:"count_weekends,omitempty"`
	CountHolidays      bool           `json:"count_holidays,omitempty"`
	Blackouts          []BlackoutJSON `json:"blackouts,omitempty"`
}

// BlackoutJSON is an inclusive date window in ISO form.
type BlackoutJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

const policySchema = `{
  "type": "object",
  "required": ["type", "display_name", "entitled_days"],
  "properties": {
    "type":                 {"type": "string", "enum": ["casual", "sick"]},
    "display_name":         {"type": "string", "minLength": 1},
    "entitled_days":        {"type": "number", "exclusiveMinimum": 0},
    "min_notice_days":      {"type": "integer", "minimum": 0},
    "max_consecutive_days": {"type": "integer", "minimum": 0},
    "count_weekends":       {"type": "boolean"},
    "count_holidays":       {"type": "boolean"},
    "blackouts": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["start", "end"],
        "properties": {
          "start": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
          "end":   {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"}
        }
      }
    }
  },
  "additionalProperties": false
}`

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to Go structs.
type PolicyFactory struct {
	schema *gojsonschema.Schema
}

func NewPolicyFactory() *PolicyFactory {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(policySchema))
	if err != nil {
		// The schema is a compile-time constant; failing to parse it is a bug.
		panic(fmt.Sprintf("factory: invalid policy schema: %v", err))
	}
	return &PolicyFactory{schema: schema}
}

// ParsePolicy validates and decodes a JSON policy document. It returns the
// policy plus the annual entitlement used for balance seeding.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (leave.LeavePolicy, decimal.Decimal, error) {
	result, err := f.schema.Validate(gojsonschema.NewStringLoader(jsonStr))
	if err != nil {
		return leave.LeavePolicy{}, decimal.Zero, fmt.Errorf("validate policy JSON: %w", err)
	}
	if !result.Valid() {
		return leave.LeavePolicy{}, decimal.Zero, fmt.Errorf("policy JSON invalid: %s", schemaErrors(result))
	}

	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return leave.LeavePolicy{}, decimal.Zero, fmt.Errorf("parse policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts PolicyJSON to leave.LeavePolicy.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (leave.LeavePolicy, decimal.Decimal, error) {
	lt := leave.LeaveType(pj.Type)
	if !leave.IsValidType(lt) {
		return leave.LeavePolicy{}, decimal.Zero, fmt.Errorf("unknown leave type %q", pj.Type)
	}

	policy := leave.LeavePolicy{
		Type:               lt,
		DisplayName:        pj.DisplayName,
		MinNoticeDays:      pj.MinNoticeDays,
		MaxConsecutiveDays: pj.MaxConsecutiveDays,
		CountWeekends:      pj.CountWeekends,
		CountHolidays:      pj.CountHolidays,
	}

	for _, b := range pj.Blackouts {
		start, err := leave.ParseDate(b.Start)
		if err != nil {
			return leave.LeavePolicy{}, decimal.Zero, fmt.Errorf("blackout start: %w", err)
		}
		end, err := leave.ParseDate(b.End)
		if err != nil {
			return leave.LeavePolicy{}, decimal.Zero, fmt.Errorf("blackout end: %w", err)
		}
		window := leave.DateRange{Start: start, End: end}
		if !window.Valid() {
			return leave.LeavePolicy{}, decimal.Zero, fmt.Errorf("blackout %s ends before it starts", window)
		}
		policy.Blackouts = append(policy.Blackouts, window)
	}

	return policy, decimal.NewFromFloat(pj.EntitledDays), nil
}

// ToJSON converts a LeavePolicy back to its JSON representation.
func (f *PolicyFactory) ToJSON(p leave.LeavePolicy, entitled decimal.Decimal) PolicyJSON {
	pj := PolicyJSON{
		Type:               string(p.Type),
		DisplayName:        p.DisplayName,
		EntitledDays:       entitled.InexactFloat64(),
		MinNoticeDays:      p.MinNoticeDays,
		MaxConsecutiveDays: p.MaxConsecutiveDays,
		CountWeekends:      p.CountWeekends,
		CountHolidays:      p.CountHolidays,
	}
	for _, b := range p.Blackouts {
		pj.Blackouts = append(pj.Blackouts, BlackoutJSON{Start: b.Start.String(), End: b.End.String()})
	}
	return pj
}

func schemaErrors(result *gojsonschema.Result) string {
	out := ""
	for i, e := range result.Errors() {
		if i > 0 {
			out += "; "
		}
		out += e.String()
	}
	return out
}

// =============================================================================
// PRESETS
// =============================================================================

// CasualLeaveJSON is the default casual-leave policy: 12 days a year,
// 2 days notice, at most 5 consecutive calendar days, weekends free.
func (f *PolicyFactory) CasualLeaveJSON() string {
	return `{
  "type": "casual",
  "display_name": "Casual Leave",
  "entitled_days": 12,
  "min_notice_days": 2,
  "max_consecutive_days": 5,
  "count_weekends": false,
  "count_holidays": false
}`
}

// SickLeaveJSON is the default sick-leave policy: 8 days a year with no
// notice requirement, since illness does not schedule itself.
func (f *PolicyFactory) SickLeaveJSON() string {
	return `{
  "type": "sick",
  "display_name": "Sick Leave",
  "entitled_days": 8,
  "min_notice_days": 0,
  "max_consecutive_days": 10,
  "count_weekends": false,
  "count_holidays": false
}`
}
