package handler

import (
	"context"
	"errors"
	"math"

	"github.com/fekuna/omnipos-supply-service/internal/httpx"
	"github.com/fekuna/omnipos-supply-service/internal/inventory"
	"github.com/fekuna/omnipos-supply-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-supply-service/internal/model"
	"github.com/fekuna/omnipos-supply-service/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const InventoryServiceName = "omnipos.supply.v1.InventoryService"

// InventoryServiceServer is the gRPC face of the inventory core. Messages are
// google.protobuf.Struct values carrying the same camelCase fields as the
// HTTP API.
type InventoryServiceServer interface {
	StockIn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	StockOut(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListMovements(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

func RegisterInventoryServiceServer(s grpc.ServiceRegistrar, srv InventoryServiceServer) {
	s.RegisterService(&InventoryServiceDesc, srv)
}

func (h *InventoryHandler) StockIn(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.move(ctx, req, h.uc.StockIn)
}

func (h *InventoryHandler) StockOut(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.move(ctx, req, h.uc.StockOut)
}

func (h *InventoryHandler) ListMovements(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	supplyID, err := intField(req, "supplyId")
	if err != nil {
		return nil, err
	}

	var items []model.InventoryMovement
	if supplyID != 0 {
		items, err = h.uc.ListMovementsBySupply(ctx, supplyID)
	} else {
		items, err = h.uc.ListMovements(ctx)
	}
	if err != nil {
		return nil, h.toStatus(err)
	}

	list := make([]any, len(items))
	for i := range items {
		list[i] = movementFields(&items[i])
	}
	return structpb.NewStruct(map[string]any{"movements": list})
}

func (h *InventoryHandler) move(ctx context.Context, req *structpb.Struct, fn moveFunc) (*structpb.Struct, error) {
	supplyID, err := intField(req, "supplyId")
	if err != nil {
		return nil, err
	}
	quantity, err := intField(req, "quantity")
	if err != nil {
		return nil, err
	}
	note, err := stringField(req, "note")
	if err != nil {
		return nil, err
	}

	m, err := fn(ctx, &dto.MovementInput{
		SupplyID: supplyID,
		Quantity: quantity,
		Note:     note,
	})
	if err != nil {
		return nil, h.toStatus(err)
	}
	return structpb.NewStruct(movementFields(m))
}

func (h *InventoryHandler) toStatus(err error) error {
	code := CodeFor(err)
	if code == codes.Internal || code == codes.Unavailable {
		h.logger.Error("Inventory call failed", zap.Error(err))
	}
	return status.Error(code, err.Error())
}

// CodeFor maps an inventory error onto a gRPC status code.
func CodeFor(err error) codes.Code {
	switch {
	case errors.Is(err, inventory.ErrSupplyNotFound):
		return codes.NotFound
	case errors.Is(err, inventory.ErrInsufficientStock):
		return codes.FailedPrecondition
	case errors.Is(err, inventory.ErrInvalidQuantity), errors.Is(err, inventory.ErrNoteTooLong):
		return codes.InvalidArgument
	case errors.Is(err, inventory.ErrQuantityOverflow):
		return codes.OutOfRange
	case errors.Is(err, inventory.ErrTimeout):
		return codes.DeadlineExceeded
	case errors.Is(err, inventory.ErrStoreUnavailable):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

func movementFields(m *model.InventoryMovement) map[string]any {
	return map[string]any{
		"id":              m.ID,
		"supplyId":        m.SupplyID,
		"type":            m.Direction.String(),
		"quantity":        m.Quantity,
		"transactionDate": m.OccurredAt.Local().Format(httpx.TimeLayout),
		"note":            m.Note,
	}
}

// intField reads an integral number field. Absent fields read as zero.
func intField(s *structpb.Struct, key string) (int64, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return 0, nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a number", key)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be an integer", key)
	}
	return int64(f), nil
}

// stringField reads an optional string. Missing and null read as "".
func stringField(s *structpb.Struct, key string) (string, error) {
	v, ok := s.GetFields()[key]
	if !ok {
		return "", nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue, nil
	case *structpb.Value_NullValue:
		return "", nil
	default:
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", key)
	}
}

func unaryHandler(method string, call func(InventoryServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(InventoryServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + InventoryServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(InventoryServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var InventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: InventoryServiceName,
	HandlerType: (*InventoryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StockIn", Handler: unaryHandler("StockIn", InventoryServiceServer.StockIn)},
		{MethodName: "StockOut", Handler: unaryHandler("StockOut", InventoryServiceServer.StockOut)},
		{MethodName: "ListMovements", Handler: unaryHandler("ListMovements", InventoryServiceServer.ListMovements)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "omnipos/supply/v1/inventory.proto",
}
