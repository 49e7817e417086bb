// internal/models/application.go
package models

import "time"

// Priority tiers assigned to a submission.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

type Customer struct {
	PersonalInfo   PersonalInfo   `json:"personalInfo"`
	EmploymentInfo EmploymentInfo `json:"employmentInfo"`
	FinancialInfo  FinancialInfo  `json:"financialInfo"`
}

type PersonalInfo struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	PAN         string `json:"pan,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

type EmploymentInfo struct {
	Type              string  `json:"employmentType"`
	EmployerName      string  `json:"employerName,omitempty"`
	YearsOfExperience float64 `json:"yearsOfExperience"`
}

type FinancialInfo struct {
	MonthlyIncome float64 `json:"monthlyIncome"`
	CreditScore   int     `json:"creditScore"`
	ExistingEMIs  float64 `json:"existingEmis"`
}

// Asset is the vehicle being financed.
type Asset struct {
	Type  string  `json:"vehicleType"`
	Make  string  `json:"make"`
	Model string  `json:"model"`
	Year  int     `json:"year"`
	Price float64 `json:"price"`
}

type FinancialRequest struct {
	LoanAmount    float64 `json:"loanAmount"`
	TenureMonths  int     `json:"tenureMonths"`
	DownPayment   float64 `json:"downPayment"`
	MonthlyIncome float64 `json:"monthlyIncome"`
	ExistingEMIs  float64 `json:"existingEmis"`
	CreditScore   int     `json:"creditScore"`
}

type Document struct {
	Type       string    `json:"type"`
	Reference  string    `json:"reference"`
	UploadedAt time.Time `json:"uploadedAt,omitempty"`
}

// Submission is an accepted loan application. It is immutable once stored.
type Submission struct {
	ApplicationID   string           `json:"applicationId"`
	Customer        Customer         `json:"customer"`
	Asset           Asset            `json:"asset"`
	Financial       FinancialRequest `json:"financial"`
	Documents       []Document       `json:"documents,omitempty"`
	SelectedLenders []string         `json:"selectedLenders,omitempty"`
	SubmittedAt     time.Time        `json:"submittedAt"`
	Priority        Priority         `json:"priority"`
}

// CreditScore prefers the score on the financial request and falls back to the
// customer's bureau snapshot.
func (s *Submission) CreditScore() int {
	if s.Financial.CreditScore > 0 {
		return s.Financial.CreditScore
	}
	return s.Customer.FinancialInfo.CreditScore
}

// MonthlyIncome follows the same precedence as CreditScore.
func (s *Submission) MonthlyIncome() float64 {
	if s.Financial.MonthlyIncome > 0 {
		return s.Financial.MonthlyIncome
	}
	return s.Customer.FinancialInfo.MonthlyIncome
}

func (s *Submission) ExistingEMIs() float64 {
	if s.Financial.ExistingEMIs > 0 {
		return s.Financial.ExistingEMIs
	}
	return s.Customer.FinancialInfo.ExistingEMIs
}

// Clone returns a copy that shares no slices with s.
func (s *Submission) Clone() *Submission {
	out := *s
	out.Documents = append([]Document(nil), s.Documents...)
	out.SelectedLenders = append([]string(nil), s.SelectedLenders...)
	return &out
}
