// internal/lending/orchestrator/priority.go
package orchestrator

import "lending-workers/internal/models"

// PriorityScore weighs credit, income, employment tenure and requested amount.
func PriorityScore(sub *models.Submission) int {
	score := 0

	switch credit := sub.CreditScore(); {
	case credit >= 750:
		score += 30
	case credit >= 700:
		score += 20
	case credit >= 650:
		score += 10
	}

	switch income := sub.MonthlyIncome(); {
	case income >= 100000:
		score += 25
	case income >= 50000:
		score += 15
	case income >= 25000:
		score += 10
	}

	switch years := sub.Customer.EmploymentInfo.YearsOfExperience; {
	case years >= 5:
		score += 20
	case years >= 3:
		score += 15
	case years >= 1:
		score += 10
	}

	switch amount := sub.Financial.LoanAmount; {
	case amount >= 1000000:
		score += 15
	case amount >= 500000:
		score += 10
	case amount >= 200000:
		score += 5
	}

	return score
}

func ComputePriority(sub *models.Submission) models.Priority {
	switch score := PriorityScore(sub); {
	case score >= 70:
		return models.PriorityHigh
	case score >= 40:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}
