package controllers

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	composerv1alpha1 "github.com/anvil-platform/composer/api/v1alpha1"
	"github.com/anvil-platform/composer/internal/plan"
)

const (
	ContainerConditionAssembled    = "Assembled"
	ContainerConditionCommissioned = "Commissioned"
)

func setContainerCondition(c *composerv1alpha1.Container, condition metav1.Condition) {
	if c == nil {
		return
	}
	condition.ObservedGeneration = c.Generation
	meta.SetStatusCondition(&c.Status.Conditions, condition)
}

func assembledMessage(p plan.Plan) string {
	if n := len(p.Diagnostics.UnresolvedOptional); n > 0 {
		return fmt.Sprintf("%d models assembled, %d optional slots without a provider", len(p.Models), n)
	}
	return fmt.Sprintf("%d models assembled", len(p.Models))
}
