package main

import (
	"github.com/liamcoop/lacvalidate/executor"
)

// API request and response models

// HealthResponse reports service status and log counters
type HealthResponse struct {
	Status   string           `json:"status" example:"healthy"`
	Years    []int            `json:"years"`
	Counters map[string]int64 `json:"counters"`
} // @name HealthResponse

// RulesetsResponse lists the supported reporting years
type RulesetsResponse struct {
	Years  []int `json:"years"`
	Latest int   `json:"latest" example:"2024"`
} // @name RulesetsResponse

// RuleResponse describes one rule in a year's registry
type RuleResponse struct {
	Code             string   `json:"code" example:"101"`
	Message          string   `json:"message" example:"Gender code is not valid."`
	AffectedFields   []string `json:"affected_fields"`
	ApplicableTables []string `json:"applicable_tables"`
} // @name RuleResponse

// RulesListResponse lists a year's rules sorted by code
type RulesListResponse struct {
	Year  int            `json:"year" example:"2024"`
	Rules []RuleResponse `json:"rules"`
} // @name RulesListResponse

// ValidateResponse wraps the report of one validation run
type ValidateResponse struct {
	RunID    string `json:"run_id" example:"123e4567-e89b-12d3-a456-426614174000"`
	Year     int    `json:"year" example:"2024"`
	Duration string `json:"duration" example:"12.5ms"`

	// Complete is false when the run was cancelled before every rule ran.
	Complete bool             `json:"complete"`
	Error    string           `json:"error,omitempty"`
	Flagged  int              `json:"flagged"`
	Report   *executor.Report `json:"report"`
} // @name ValidateResponse

// ErrorResponse is returned for every non-2xx status
type ErrorResponse struct {
	Error   string `json:"error" example:"invalid bundle"`
	Details string `json:"details,omitempty"`
} // @name ErrorResponse
