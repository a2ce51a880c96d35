package model

import "github.com/anvil-platform/composer/internal/meta"

// DependencySlot binds one dependency of a component to its provider.
type DependencySlot struct {
	Descriptor meta.DependencyDescriptor
	// Path, when set, addresses the provider directly instead of searching.
	Path     string
	provider DeploymentModel
}

func (s *DependencySlot) Provider() DeploymentModel { return s.provider }

func (s *DependencySlot) Resolved() bool { return s.provider != nil }

// StageSlot binds one lifecycle stage to its extension provider.
type StageSlot struct {
	Descriptor meta.StageDescriptor
	Path       string
	provider   DeploymentModel
}

func (s *StageSlot) Provider() DeploymentModel { return s.provider }

func (s *StageSlot) Resolved() bool { return s.provider != nil }

// ContextSlot binds staged context delivery to its extension provider. It
// exists only for types with staged delivery.
type ContextSlot struct {
	Descriptor meta.StageDescriptor
	Path       string
	provider   DeploymentModel
}

func (s *ContextSlot) Provider() DeploymentModel { return s.provider }

func (s *ContextSlot) Resolved() bool { return s.provider != nil }
