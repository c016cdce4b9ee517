package persistence

import (
	"github.com/dukex/automations/pkg/branching"
	"github.com/dukex/automations/pkg/models"
	"github.com/google/uuid"
)

// AssignPermanentIDs gives every provisional step a uuid and rewrites branch
// targets accordingly. Stores use it on Create so the stored copy and the
// returned mapping agree.
func AssignPermanentIDs(def models.WorkflowDefinition) (models.WorkflowDefinition, []models.IDMapping) {
	out := def.Clone()
	idMap := make(map[string]string)
	mappings := make([]models.IDMapping, 0, len(out.Steps))

	for _, s := range out.Steps {
		permanent := s.ID
		if s.ID == "" || models.IsProvisionalID(s.ID) {
			permanent = uuid.NewString()
		}

		if s.ID != "" && permanent != s.ID {
			idMap[s.ID] = permanent
		}

		mappings = append(mappings, models.IDMapping{TempID: s.ID, PermanentID: permanent})
	}

	out.Steps = branching.RemapTargets(out.Steps, idMap)

	for i, m := range mappings {
		out.Steps[i].ID = m.PermanentID
	}

	return out, mappings
}
