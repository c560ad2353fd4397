package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/facturasv/dte-api/internal/application/auth"
	"github.com/facturasv/dte-api/internal/application/certificado"
	"github.com/facturasv/dte-api/internal/application/emision"
	"github.com/facturasv/dte-api/internal/application/evento"
	"github.com/facturasv/dte-api/internal/domain/entity"
	"github.com/facturasv/dte-api/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	EmitterUC      *emision.EmitterUseCase
	EventoUC       *evento.UseCase
	CertificadoUC  *certificado.UseCase
	CredencialesUC *certificado.CredencialesUseCase
	AuthUC         *auth.AuthUseCase
	Tenants        repository.TenantRepository
	DTEs           repository.DTERepository
	Plantillas     repository.PlantillaRepository
	JWTSecret      string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Onboarding de tenants (público; el primer usuario se registra después)
	tenantHandler := NewTenantHandler(deps.Tenants)
	api.Post("/tenants", tenantHandler.Create)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	protected.Get("/tenants/me", tenantHandler.Me)

	// Emisión y ciclo de vida de DTE
	dteHandler := NewDTEHandler(deps.EmitterUC, deps.DTEs)
	dtes := protected.Group("/dte")
	dtes.Post("/", RequireRole(entity.RoleAdmin, entity.RoleFacturador), dteHandler.Emitir)
	dtes.Get("/", dteHandler.List)
	dtes.Get("/:id", dteHandler.GetByID)
	dtes.Post("/:id/reintentar", RequireRole(entity.RoleAdmin, entity.RoleFacturador), dteHandler.Reintentar)
	dtes.Post("/:id/consultar", dteHandler.Consultar)

	// Eventos: anulación y contingencia
	eventoHandler := NewEventoHandler(deps.EventoUC)
	eventos := protected.Group("/eventos")
	eventos.Post("/anulacion", RequireRole(entity.RoleAdmin, entity.RoleFacturador), eventoHandler.Anular)
	eventos.Post("/contingencia", RequireRole(entity.RoleAdmin, entity.RoleFacturador), eventoHandler.DeclararContingencia)
	eventos.Get("/:codigoGeneracion", eventoHandler.ListarPorDTE)

	// Material criptográfico y credenciales MH (solo admin)
	certHandler := NewCertificadoHandler(deps.CertificadoUC, deps.CredencialesUC)
	certs := protected.Group("/certificados", RequireRole(entity.RoleAdmin))
	certs.Post("/", certHandler.Subir)
	certs.Get("/", certHandler.Consultar)
	protected.Post("/credenciales", RequireRole(entity.RoleAdmin), certHandler.GuardarCredenciales)

	// Facturación recurrente
	plantillaHandler := NewPlantillaHandler(deps.Plantillas)
	plantillas := protected.Group("/plantillas")
	plantillas.Post("/", RequireRole(entity.RoleAdmin, entity.RoleFacturador), plantillaHandler.Create)
	plantillas.Get("/", plantillaHandler.List)
	plantillas.Delete("/:id", RequireRole(entity.RoleAdmin, entity.RoleFacturador), plantillaHandler.Desactivar)
}
