package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-relay/internal/relay"
	"github.com/nulzo/model-relay/pkg/api"
)

const ownedBy = "model-relay"

type ModelHandler struct {
	tables relay.TableSource
}

func NewModelHandler(tables relay.TableSource) *ModelHandler {
	return &ModelHandler{tables: tables}
}

// ListModels reports the exposed ids of the current routing snapshot.
func (h *ModelHandler) ListModels(c *gin.Context) {
	list := api.ModelList{Object: "list", Data: []api.Model{}}

	if table := h.tables.Load(); table != nil {
		for _, id := range table.ExposedModels() {
			list.Data = append(list.Data, api.Model{
				ID:      id,
				Object:  "model",
				Created: 1,
				OwnedBy: ownedBy,
			})
		}
	}

	c.JSON(http.StatusOK, list)
}
