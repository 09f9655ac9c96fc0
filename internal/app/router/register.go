package router

import "github.com/gin-gonic/gin"

// Registrar is implemented by each module; Register attaches the module's
// routes to the engine.
type Registrar interface{ Register(r *gin.Engine) }

var registrars []Registrar

// Register adds modules to the global registry.
func Register(rs ...Registrar) { registrars = append(registrars, rs...) }

// Mount attaches every registered module.
func Mount(r *gin.Engine) {
	for _, rg := range registrars {
		rg.Register(r)
	}
}
