package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
)

// Taxonomía de errores del ciclo de vida DTE. El transmisor decide con
// errors.Is cuáles clases se reintentan y cuáles se reportan al tenant.
var (
	// ErrValidacion: el documento no cumple esquema o reglas de negocio. Nunca se transmite.
	ErrValidacion = errors.New("documento inválido")
	// ErrCertificado: certificado ausente, corrupto o con contraseña incorrecta. Bloquea la firma.
	ErrCertificado = errors.New("certificado inválido")
	// ErrCertificadoVencido: el certificado está fuera de su ventana de vigencia.
	ErrCertificadoVencido = errors.New("certificado vencido o aún no vigente")
	// ErrFirma: fallo criptográfico al firmar.
	ErrFirma = errors.New("error de firma")
	// ErrAutenticacionMH: el MH rechazó las credenciales. Fatal, requiere intervención del tenant.
	ErrAutenticacionMH = errors.New("credenciales MH rechazadas")
	// ErrTransporte: fallo de red o timeout. Reintentable con backoff.
	ErrTransporte = errors.New("error de transporte hacia el MH")
	// ErrRechazoMH: el MH devolvió un rechazo definitivo con código de negocio. No se reintenta.
	ErrRechazoMH = errors.New("documento rechazado por el MH")
	// ErrAnomaliaProtocolo: la respuesta del MH no tiene la forma esperada. Posible incidente del lado MH.
	ErrAnomaliaProtocolo = errors.New("respuesta MH con forma inesperada")
	// ErrCodigoDuplicado: el MH reporta que el codigoGeneracion ya existe. Clase propia
	// para que el transmisor reconcilie vía consulta en lugar de reenviar a ciegas.
	ErrCodigoDuplicado = errors.New("codigoGeneracion ya registrado en el MH")
	// ErrTransicionEstado: se intentó una transición ilegal del estado del documento.
	ErrTransicionEstado = errors.New("transición de estado no permitida")
	// ErrSecuencia: la capa de persistencia no pudo garantizar el incremento atómico
	// del correlativo. La emisión falla cerrada: jamás se arriesga un numeroControl duplicado.
	ErrSecuencia = errors.New("no se pudo asignar correlativo de forma atómica")
)
