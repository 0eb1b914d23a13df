package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-stock/internal/domain"
	"github.com/jhoicas/inventario-stock/internal/domain/entity"
	"github.com/jhoicas/inventario-stock/pkg/config"
	"github.com/jhoicas/inventario-stock/pkg/logger"
	kafkago "github.com/segmentio/kafka-go"
)

// Tipos de evento del catálogo que disparan aprovisionamiento.
const (
	EventProductCreated = "ProductCreated"
	EventProductUpdated = "ProductUpdated"
	EventBranchCreated  = "BranchCreated"
)

// MessageReader subconjunto de *kafka.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// CatalogHandler reacciona a altas del catálogo (inventory.Provisioner lo implementa).
type CatalogHandler interface {
	OnProductCreatedByID(ctx context.Context, companyID, productID string) (entity.CoverageReport, error)
	OnBranchCreatedByID(ctx context.Context, companyID, branchID string) (entity.CoverageReport, error)
}

// CatalogEvent sobre de los eventos publicados por el servicio de catálogo.
type CatalogEvent struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Payload   CatalogPayload `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// CatalogPayload entidad afectada.
type CatalogPayload struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
}

// CatalogListener consume eventos del catálogo y asegura las líneas de inventario.
// El offset se confirma después de procesar (entrega al menos una vez; el handler es idempotente).
type CatalogListener struct {
	reader       MessageReader
	handler      CatalogHandler
	log          *logger.Logger
	retryBackoff time.Duration
}

// NewReader construye el consumidor de kafka-go para el tópico del catálogo.
func NewReader(cfg config.KafkaConfig) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// NewCatalogListener construye el listener.
func NewCatalogListener(reader MessageReader, handler CatalogHandler, log *logger.Logger) *CatalogListener {
	return &CatalogListener{reader: reader, handler: handler, log: log.Named("kafka"), retryBackoff: time.Second}
}

// Start lee mensajes hasta que ctx se cancele. Devuelve nil al detenerse por cancelación.
func (l *CatalogListener) Start(ctx context.Context) error {
	l.log.Info().Msg("listener de catálogo iniciado")
	defer func() {
		if err := l.reader.Close(); err != nil {
			l.log.Warn().Err(err).Msg("error cerrando consumidor kafka")
		}
	}()
	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.log.Info().Msg("listener de catálogo detenido")
				return nil
			}
			l.log.Error().Err(err).Msg("error leyendo mensaje kafka")
			if !sleep(ctx, l.retryBackoff) {
				return nil
			}
			continue
		}

		if err := l.processMessage(ctx, msg.Value); err != nil {
			l.log.Error().Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("evento de catálogo no procesado")
		}
		if err := l.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			l.log.Warn().Err(err).Int64("offset", msg.Offset).Msg("no se pudo confirmar offset")
		}
	}
}

// processMessage decodifica y despacha un evento. Los eventos desconocidos se ignoran;
// los errores transitorios se reintentan una vez antes de darse por perdidos (la
// reconciliación cubre el hueco).
func (l *CatalogListener) processMessage(ctx context.Context, value []byte) error {
	var event CatalogEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("decodificar evento: %w", err)
	}
	if event.Payload.ID == "" || event.Payload.CompanyID == "" {
		if isCatalogEvent(event.EventType) {
			return fmt.Errorf("evento %s incompleto: %w", event.EventType, domain.ErrInvalidInput)
		}
		return nil
	}

	var dispatch func(context.Context, string, string) (entity.CoverageReport, error)
	switch event.EventType {
	case EventProductCreated, EventProductUpdated:
		dispatch = l.handler.OnProductCreatedByID
	case EventBranchCreated:
		dispatch = l.handler.OnBranchCreatedByID
	default:
		return nil
	}

	report, err := dispatch(ctx, event.Payload.CompanyID, event.Payload.ID)
	if errors.Is(err, domain.ErrTransientStorage) && sleep(ctx, l.retryBackoff) {
		report, err = dispatch(ctx, event.Payload.CompanyID, event.Payload.ID)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", event.EventType, event.Payload.ID, err)
	}
	l.log.Info().
		Str("event_id", event.EventID).
		Str("event_type", event.EventType).
		Str("company_id", event.Payload.CompanyID).
		Int("lines_created", report.Created).
		Int("failures", len(report.Failures)).
		Msg("evento de catálogo procesado")
	return nil
}

func isCatalogEvent(t string) bool {
	return t == EventProductCreated || t == EventProductUpdated || t == EventBranchCreated
}

// sleep espera d o hasta que ctx se cancele; false si se canceló.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
