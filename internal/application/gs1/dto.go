package gs1

import "github.com/google/uuid"

// DespatchResult reports what a despatch advice message changed
type DespatchResult struct {
	// Created holds the IDs of the new shipment acts
	Created []uuid.UUID `json:"created"`
	// CompletedOrders holds the IDs of orders marked completed
	CompletedOrders []uuid.UUID `json:"completed_orders"`
	// Duplicates holds despatch identifiers skipped as already processed
	Duplicates []string `json:"duplicates,omitempty"`
	// MaterialsCreated counts manufactured materials created on the fly
	MaterialsCreated int `json:"materials_created"`
}

// OrderResponseResult reports what an order response message changed
type OrderResponseResult struct {
	UpdatedOrders []uuid.UUID `json:"updated_orders"`
	// Duplicates holds response identifiers already applied
	Duplicates []string `json:"duplicates,omitempty"`
}
