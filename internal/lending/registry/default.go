// internal/lending/registry/default.go
package registry

import "lending-workers/internal/models"

const (
	VehicleTwoWheeler = "two_wheeler"
	VehicleCar        = "car"
	VehicleCommercial = "commercial"
	VehicleElectric   = "electric"

	EmploymentSalaried     = "salaried"
	EmploymentSelfEmployed = "self_employed"
	EmploymentBusiness     = "business"
)

var defaultLenders = []models.Lender{
	{
		ID: "hdfc", Name: "HDFC Bank", Active: true,
		ApprovalRate: 0.78, AvgResponseMinutes: 30, MinCreditScore: 700,
		MinLoanAmount: 100000, MaxLoanAmount: 5000000, ProcessingFee: 2500, CommissionRate: 1.5,
		VehicleTypes:    []string{VehicleCar, VehicleTwoWheeler, VehicleElectric},
		EmploymentTypes: []string{EmploymentSalaried, EmploymentSelfEmployed},
	},
	{
		ID: "icici", Name: "ICICI Bank", Active: true,
		ApprovalRate: 0.74, AvgResponseMinutes: 45, MinCreditScore: 690,
		MinLoanAmount: 100000, MaxLoanAmount: 4000000, ProcessingFee: 3000, CommissionRate: 1.4,
		VehicleTypes:    []string{VehicleCar, VehicleCommercial, VehicleElectric},
		EmploymentTypes: []string{EmploymentSalaried, EmploymentSelfEmployed, EmploymentBusiness},
	},
	{
		ID: "sbi", Name: "State Bank of India", Active: true,
		ApprovalRate: 0.70, AvgResponseMinutes: 120, MinCreditScore: 680,
		MinLoanAmount: 150000, MaxLoanAmount: 7500000, ProcessingFee: 1500, CommissionRate: 1.0,
		VehicleTypes:    []string{VehicleCar, VehicleCommercial},
		EmploymentTypes: []string{EmploymentSalaried, EmploymentBusiness},
	},
	{
		ID: "axis", Name: "Axis Bank", Active: true,
		ApprovalRate: 0.72, AvgResponseMinutes: 60, MinCreditScore: 700,
		MinLoanAmount: 100000, MaxLoanAmount: 3500000, ProcessingFee: 2000, CommissionRate: 1.3,
		VehicleTypes:    []string{VehicleCar, VehicleTwoWheeler},
		EmploymentTypes: []string{EmploymentSalaried, EmploymentSelfEmployed},
	},
	{
		ID: "kotak", Name: "Kotak Mahindra Bank", Active: true,
		ApprovalRate: 0.69, AvgResponseMinutes: 40, MinCreditScore: 710,
		MinLoanAmount: 200000, MaxLoanAmount: 5000000, ProcessingFee: 3500, CommissionRate: 1.6,
		VehicleTypes:    []string{VehicleCar, VehicleElectric},
		EmploymentTypes: []string{EmploymentSalaried, EmploymentSelfEmployed, EmploymentBusiness},
	},
	{
		ID: "bajaj", Name: "Bajaj Finserv", Active: true,
		ApprovalRate: 0.82, AvgResponseMinutes: 15, MinCreditScore: 650,
		MinLoanAmount: 30000, MaxLoanAmount: 2000000, ProcessingFee: 1999, CommissionRate: 2.0,
		VehicleTypes:    []string{VehicleTwoWheeler, VehicleCar, VehicleElectric},
		EmploymentTypes: []string{EmploymentSalaried, EmploymentSelfEmployed, EmploymentBusiness},
	},
	{
		ID: "tata_capital", Name: "Tata Capital", Active: true,
		ApprovalRate: 0.76, AvgResponseMinutes: 35, MinCreditScore: 660,
		MinLoanAmount: 75000, MaxLoanAmount: 3000000, ProcessingFee: 2200, CommissionRate: 1.8,
		VehicleTypes:    []string{VehicleCar, VehicleCommercial, VehicleTwoWheeler},
		EmploymentTypes: []string{EmploymentSalaried, EmploymentSelfEmployed},
	},
	{
		ID: "mahindra_finance", Name: "Mahindra Finance", Active: false,
		ApprovalRate: 0.80, AvgResponseMinutes: 90, MinCreditScore: 620,
		MinLoanAmount: 50000, MaxLoanAmount: 2500000, ProcessingFee: 1800, CommissionRate: 2.2,
		VehicleTypes:    []string{VehicleCommercial, VehicleCar, VehicleTwoWheeler},
		EmploymentTypes: []string{EmploymentSelfEmployed, EmploymentBusiness},
	},
}

// Default returns the built-in catalogue of Indian banks and NBFCs.
func Default() *Registry {
	r, err := New(defaultLenders)
	if err != nil {
		panic("registry: invalid default catalogue: " + err.Error())
	}
	return r
}
