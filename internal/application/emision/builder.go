package emision

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/facturasv/dte-api/internal/application/dto"
	"github.com/facturasv/dte-api/internal/domain"
	"github.com/facturasv/dte-api/internal/domain/entity"
	"github.com/facturasv/dte-api/pkg/dte"
)

// Tasa de IVA vigente en El Salvador.
var tasaIVA = decimal.NewFromFloat(0.13)

var dosDecimales = int32(2)

// NuevoCodigoGeneracion genera el identificador universal del documento:
// UUID v4 de 36 caracteres en mayúsculas.
func NuevoCodigoGeneracion() string {
	return strings.ToUpper(uuid.New().String())
}

// ConstruirDocumento arma el payload del DTE a partir del request y los datos
// del emisor. La identificación queda incompleta (sin numeroControl ni
// codigoGeneracion): esos se asignan dentro de la transacción de emisión.
func ConstruirDocumento(t *entity.Tenant, req *dto.EmitirDTERequest, emitidoEn time.Time) (*entity.Documento, error) {
	if !dte.ValidTipoDte[req.TipoDte] {
		return nil, fmt.Errorf("%w: tipo de DTE %q no soportado", domain.ErrValidacion, req.TipoDte)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: el documento no tiene líneas", domain.ErrValidacion)
	}

	condicion := req.CondicionOperacion
	if condicion == 0 {
		condicion = dte.CondicionContado
	}

	doc := &entity.Documento{
		Identificacion: entity.Identificacion{
			Version:       dte.SchemaVersion(req.TipoDte),
			Ambiente:      t.Ambiente,
			TipoDte:       req.TipoDte,
			TipoModelo:    dte.ModeloFacturacionPrevio,
			TipoOperacion: dte.TransmisionNormal,
			FecEmi:        emitidoEn.Format("2006-01-02"),
			HorEmi:        emitidoEn.Format("15:04:05"),
			TipoMoneda:    dte.Moneda,
		},
		Emisor: entity.Emisor{
			NIT:             dte.OnlyDigits(t.NIT),
			NRC:             dte.OnlyDigits(t.NRC),
			Nombre:          t.Nombre,
			CodActividad:    t.CodActividad,
			DescActividad:   t.DescActividad,
			NombreComercial: t.NombreComercial,
			Direccion:       t.Direccion,
			Telefono:        t.Telefono,
			Correo:          t.Correo,
			CodEstable:      t.Establecimiento,
			CodPuntoVenta:   t.PuntoVenta,
		},
		Receptor: entity.Receptor{
			TipoDocumento: req.Receptor.TipoDocumento,
			NumDocumento:  req.Receptor.NumDocumento,
			NIT:           dte.OnlyDigits(req.Receptor.NIT),
			NRC:           dte.OnlyDigits(req.Receptor.NRC),
			Nombre:        req.Receptor.Nombre,
			Direccion:     req.Receptor.Direccion,
			Telefono:      req.Receptor.Telefono,
			Correo:        req.Receptor.Correo,
		},
	}

	var totalGravada, totalDescu, totalIva decimal.Decimal
	for i, item := range req.Items {
		bruto := item.Cantidad.Mul(item.PrecioUni).Round(dosDecimales)
		gravada := bruto.Sub(item.MontoDescu).Round(dosDecimales)
		if gravada.IsNegative() {
			return nil, fmt.Errorf("%w: línea %d: el descuento excede el monto", domain.ErrValidacion, i+1)
		}
		iva := gravada.Mul(tasaIVA).Round(dosDecimales)

		doc.CuerpoDocumento = append(doc.CuerpoDocumento, entity.CuerpoItem{
			NumItem:      i + 1,
			TipoItem:     item.TipoItem,
			Descripcion:  item.Descripcion,
			Cantidad:     item.Cantidad,
			PrecioUni:    item.PrecioUni,
			MontoDescu:   item.MontoDescu,
			VentaGravada: gravada,
			IvaItem:      iva,
		})

		totalGravada = totalGravada.Add(gravada)
		totalDescu = totalDescu.Add(item.MontoDescu)
		totalIva = totalIva.Add(iva)
	}

	totalOperacion := totalGravada.Add(totalIva).Round(dosDecimales)
	doc.Resumen = entity.Resumen{
		TotalGravada:        totalGravada,
		SubTotal:            totalGravada,
		TotalDescu:          totalDescu,
		TotalIva:            totalIva,
		MontoTotalOperacion: totalOperacion,
		TotalPagar:          totalOperacion,
		CondicionOperacion:  condicion,
	}
	return doc, nil
}
