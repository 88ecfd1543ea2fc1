package endpoints

import (
	"github.com/doodlesbykumbi/scanstore/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterPipelinesEndpoints(srv)
	RegisterScansEndpoints(srv)
	RegisterFindingsEndpoints(srv)
	RegisterApprovalRulesEndpoints(srv)
}
