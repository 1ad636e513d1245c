package rest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/lintang-b-s/accessx/pkg/datastructure"
	"github.com/lintang-b-s/accessx/pkg/engine/accessibility"
	"github.com/lintang-b-s/accessx/pkg/server"
	"github.com/lintang-b-s/accessx/pkg/server/rest/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

type AccessService interface {
	Aggregate(ctx context.Context, origin service.Location, radius float64,
		category, aggType, decayType string, variant int) (float64, int32, error)
	AggregateAll(ctx context.Context, radius float64,
		category, aggType, decayType string, variant int) ([]float64, error)
	BatchAggregate(ctx context.Context, origins []service.Location, radius float64,
		category, aggType, decayType string, variant int) ([]accessibility.SourceScore, []int32, error)

	NearestPOIs(ctx context.Context, origin service.Location, maxRadius float64,
		k int, category string, variant int) ([]datastructure.POIPair, int32, error)
	BatchNearestPOIs(ctx context.Context, origins []service.Location, maxRadius float64,
		k int, category string, variant int) ([]accessibility.SourcePOIRows, []int32, error)
	AllNearestPOIs(ctx context.Context, maxRadius float64,
		k int, category string, variant int) ([][]datastructure.POIPair, error)

	ReachableSet(ctx context.Context, origin service.Location, radius float64,
		variant int) ([]datastructure.ReachedNode, int32, error)
	Distance(ctx context.Context, src, tgt service.Location, variant int) (float64, int32, int32, error)
	Route(ctx context.Context, src, tgt service.Location, variant int) (string, float64, []int32, error)
	DistanceMatrix(ctx context.Context, sources, targets []service.Location,
		variant int) ([][]float64, error)

	RegisterPOICategory(ctx context.Context, name string, maxDist float64, maxK int,
		locations []service.Location) error
	RegisterVariable(ctx context.Context, name string, locations []service.Location,
		values []float64) error
	Precompute(ctx context.Context, radius float64, variant int, persist bool) error
}

type AccessHandler struct {
	svc AccessService
}

func AccessRouter(r *chi.Mux, svc AccessService) {
	handler := &AccessHandler{svc}

	r.Group(func(r chi.Router) {
		r.Route("/api/access", func(r chi.Router) {
			r.Post("/aggregate", handler.Aggregate)
			r.Post("/aggregate/all", handler.AggregateAll)
			r.Post("/aggregate/batch", handler.BatchAggregate)
			r.Post("/pois/nearest", handler.NearestPOIs)
			r.Post("/pois/nearest/batch", handler.BatchNearestPOIs)
			r.Post("/pois/nearest/all", handler.AllNearestPOIs)
			r.Post("/range", handler.ReachableSet)
			r.Post("/distance", handler.Distance)
			r.Post("/route", handler.Route)
			r.Post("/distance/matrix", handler.DistanceMatrix)
			r.Post("/poi-categories", handler.RegisterPOICategory)
			r.Post("/variables", handler.RegisterVariable)
			r.Post("/precompute", handler.Precompute)
		})
	})
}

// Origin model info
//
//	@Description	one query origin: a graph node id or a coordinate that gets snapped onto the network
type Origin struct {
	NodeID *int32   `json:"node_id,omitempty"`
	Lat    *float64 `json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lon    *float64 `json:"lon,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

func (o *Origin) valid() bool {
	return o.NodeID != nil || (o.Lat != nil && o.Lon != nil)
}

func (o *Origin) toLocation() service.Location {
	if o.NodeID != nil {
		return service.NewNodeLocation(*o.NodeID)
	}
	return service.NewCoordLocation(*o.Lat, *o.Lon)
}

func toLocations(origins []Origin) []service.Location {
	locs := make([]service.Location, len(origins))
	for i := range origins {
		locs[i] = origins[i].toLocation()
	}
	return locs
}

func validateRequest(w http.ResponseWriter, r *http.Request, data interface{}) bool {
	validate := validator.New()
	if err := validate.Struct(data); err != nil {
		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")
		_ = enTranslations.RegisterDefaultTranslations(validate, trans)
		vv := translateError(err, trans)
		render.Render(w, r, ErrValidation(err, vv))
		return false
	}
	return true
}

// AggregateRequest model info
//
//	@Description	request body for a single-origin accessibility aggregation
type AggregateRequest struct {
	Origin    Origin  `json:"origin"`
	Radius    float64 `json:"radius" validate:"required,gt=0"`
	Category  string  `json:"category" validate:"required"`
	AggType   string  `json:"agg_type" validate:"required"`
	DecayType string  `json:"decay_type" validate:"required"`
	Variant   int     `json:"variant" validate:"gte=0"`
}

func (s *AggregateRequest) Bind(r *http.Request) error {
	if !s.Origin.valid() {
		return errors.New("origin needs a node_id or a lat/lon pair")
	}
	return nil
}

// AggregateResponse model info
//
//	@Description	response body for a single-origin accessibility aggregation
type AggregateResponse struct {
	NodeID int32   `json:"node_id"`
	Score  float64 `json:"score"`
}

// Aggregate
//
//	@Summary		decay-weighted aggregation of a variable category over the reachable set of one origin
//	@Description	snaps the origin onto the network when given as a coordinate, collects every node within radius on the chosen graph variant and aggregates the category's values with the requested aggregation and decay
//	@Tags			accessibility
//	@Param			body	body	AggregateRequest	true	"aggregation request"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/access/aggregate [post]
//	@Success		200	{object}	AggregateResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *AccessHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	data := &AggregateRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, *data) {
		return
	}

	score, nodeID, err := h.svc.Aggregate(r.Context(), data.Origin.toLocation(), data.Radius,
		data.Category, data.AggType, data.DecayType, data.Variant)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &AggregateResponse{NodeID: nodeID, Score: score})
}

// AggregateAllRequest model info
//
//	@Description	request body for aggregating a variable category at every node
type AggregateAllRequest struct {
	Radius    float64 `json:"radius" validate:"required,gt=0"`
	Category  string  `json:"category" validate:"required"`
	AggType   string  `json:"agg_type" validate:"required"`
	DecayType string  `json:"decay_type" validate:"required"`
	Variant   int     `json:"variant" validate:"gte=0"`
}

func (s *AggregateAllRequest) Bind(r *http.Request) error {
	return nil
}

// AggregateAllResponse model info
//
//	@Description	per-node scores, indexed by node id
type AggregateAllResponse struct {
	Scores []float64 `json:"scores"`
}

// AggregateAll
//
//	@Summary		aggregate a variable category over the reachable set of every node
//	@Description	runs the single-origin aggregation for all nodes in parallel; unrecognized category or types yield an empty score list
//	@Tags			accessibility
//	@Param			body	body	AggregateAllRequest	true	"aggregate-all request"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/access/aggregate/all [post]
//	@Success		200	{object}	AggregateAllResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *AccessHandler) AggregateAll(w http.ResponseWriter, r *http.Request) {
	data := &AggregateAllRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, *data) {
		return
	}

	scores, err := h.svc.AggregateAll(r.Context(), data.Radius,
		data.Category, data.AggType, data.DecayType, data.Variant)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &AggregateAllResponse{Scores: scores})
}

// BatchAggregateRequest model info
//
//	@Description	request body for a multi-origin aggregation sharing one clustered range pass
type BatchAggregateRequest struct {
	Origins   []Origin `json:"origins" validate:"required,min=1,dive"`
	Radius    float64  `json:"radius" validate:"required,gt=0"`
	Category  string   `json:"category" validate:"required"`
	AggType   string   `json:"agg_type" validate:"required"`
	DecayType string   `json:"decay_type" validate:"required"`
	Variant   int      `json:"variant" validate:"gte=0"`
}

func (s *BatchAggregateRequest) Bind(r *http.Request) error {
	if len(s.Origins) == 0 {
		return errors.New("origins cannot be empty")
	}
	for i := range s.Origins {
		if !s.Origins[i].valid() {
			return fmt.Errorf("origin %d needs a node_id or a lat/lon pair", i)
		}
	}
	return nil
}

// BatchAggregateResponse model info
//
//	@Description	index-tagged scores plus the node each origin snapped to
type BatchAggregateResponse struct {
	Scores  []accessibility.SourceScore `json:"scores"`
	NodeIDs []int32                     `json:"node_ids"`
}

// BatchAggregate
//
//	@Summary		aggregate for a list of origins, clustered so nearby origins share range computations
//	@Description	only sum, count and mean aggregations are accepted in batch mode
//	@Tags			accessibility
//	@Param			body	body	BatchAggregateRequest	true	"batch aggregation request"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/access/aggregate/batch [post]
//	@Success		200	{object}	BatchAggregateResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *AccessHandler) BatchAggregate(w http.ResponseWriter, r *http.Request) {
	data := &BatchAggregateRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, *data) {
		return
	}

	scores, nodeIDs, err := h.svc.BatchAggregate(r.Context(), toLocations(data.Origins),
		data.Radius, data.Category, data.AggType, data.DecayType, data.Variant)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &BatchAggregateResponse{Scores: scores, NodeIDs: nodeIDs})
}

// NearestPOIsRequest model info
//
//	@Description	request body for the k-nearest POIs of one origin
type NearestPOIsRequest struct {
	Origin    Origin  `json:"origin"`
	MaxRadius float64 `json:"max_radius" validate:"required,gt=0"`
	K         int     `json:"k" validate:"required,gt=0"`
	Category  string  `json:"category" validate:"required"`
	Variant   int     `json:"variant" validate:"gte=0"`
}

func (s *NearestPOIsRequest) Bind(r *http.Request) error {
	if !s.Origin.valid() {
		return errors.New("origin needs a node_id or a lat/lon pair")
	}
	return nil
}

// NearestPOIsResponse model info
//
//	@Description	nearest POIs as (network distance, registration sequence index) rows
type NearestPOIsResponse struct {
	NodeID int32                   `json:"node_id"`
	POIs   []datastructure.POIPair `json:"pois"`
}

// NearestPOIs
//
//	@Summary		k nearest POIs of a registered category around one origin
//	@Description	maxRadius and k must stay within the ceilings fixed at category registration; an unregistered category yields an empty list
//	@Tags			accessibility
//	@Param			body	body	NearestPOIsRequest	true	"nearest POI request"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/access/pois/nearest [post]
//	@Success		200	{object}	NearestPOIsResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *AccessHandler) NearestPOIs(w http.ResponseWriter, r *http.Request) {
	data := &NearestPOIsRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, *data) {
		return
	}

	pois, nodeID, err := h.svc.NearestPOIs(r.Context(), data.Origin.toLocation(),
		data.MaxRadius, data.K, data.Category, data.Variant)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &NearestPOIsResponse{NodeID: nodeID, POIs: pois})
}

// BatchNearestPOIsRequest model info
//
//	@Description	request body for nearest-POI lookups over a list of origins
type BatchNearestPOIsRequest struct {
	Origins   []Origin `json:"origins" validate:"required,min=1,dive"`
	MaxRadius float64  `json:"max_radius" validate:"required,gt=0"`
	K         int      `json:"k" validate:"required,gt=0"`
	Category  string   `json:"category" validate:"required"`
	Variant   int      `json:"variant" validate:"gte=0"`
}

func (s *BatchNearestPOIsRequest) Bind(r *http.Request) error {
	if len(s.Origins) == 0 {
		return errors.New("origins cannot be empty")
	}
	for i := range s.Origins {
		if !s.Origins[i].valid() {
			return fmt.Errorf("origin %d needs a node_id or a lat/lon pair", i)
		}
	}
	return nil
}

// BatchNearestPOIsResponse model info
//
//	@Description	per-origin nearest-POI rows, tagged with the origin's position in the request
type BatchNearestPOIsResponse struct {
	Rows    []accessibility.SourcePOIRows `json:"rows"`
	NodeIDs []int32                       `json:"node_ids"`
}

// BatchNearestPOIs
//
//	@Summary		k nearest POIs for a list of origins, clustered for locality
//	@Tags			accessibility
//	@Param			body	body	BatchNearestPOIsRequest	true	"batch nearest POI request"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/access/pois/nearest/batch [post]
//	@Success		200	{object}	BatchNearestPOIsResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *AccessHandler) BatchNearestPOIs(w http.ResponseWriter, r *http.Request) {
	data := &BatchNearestPOIsRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, *data) {
		return
	}

	rows, nodeIDs, err := h.svc.BatchNearestPOIs(r.Context(), toLocations(data.Origins),
		data.MaxRadius, data.K, data.Category, data.Variant)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &BatchNearestPOIsResponse{Rows: rows, NodeIDs: nodeIDs})
}

// AllNearestPOIsRequest model info
//
//	@Description	request body for the nearest-POI table of every node
type AllNearestPOIsRequest struct {
	MaxRadius float64 `json:"max_radius" validate:"required,gt=0"`
	K         int     `json:"k" validate:"required,gt=0"`
	Category  string  `json:"category" validate:"required"`
	Variant   int     `json:"variant" validate:"gte=0"`
}

func (s *AllNearestPOIsRequest) Bind(r *http.Request) error {
	return nil
}

// AllNearestPOIsResponse model info
//
//	@Description	one k-wide row per node, padded with (-1,-1) entries
type AllNearestPOIsResponse struct {
	Rows [][]datastructure.POIPair `json:"rows"`
}

// AllNearestPOIs
//
//	@Summary		nearest-POI rows for every node of the network
//	@Tags			accessibility
//	@Param			body	body	AllNearestPOIsRequest	true	"all nearest POI request"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/access/pois/nearest/all [post]
//	@Success		200	{object}	AllNearestPOIsResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *AccessHandler) AllNearestPOIs(w http.ResponseWriter, r *http.Request) {
	data := &AllNearestPOIsRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, *data) {
		return
	}

	rows, err := h.svc.AllNearestPOIs(r.Context(), data.MaxRadius, data.K,
		data.Category, data.Variant)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &AllNearestPOIsResponse{Rows: rows})
}

// ReachableSetRequest model info
//
//	@Description	request body for the reachable set of one origin
type ReachableSetRequest struct {
	Origin  Origin  `json:"origin"`
	Radius  float64 `json:"radius" validate:"gte=0"`
	Variant int     `json:"variant" validate:"gte=0"`
}

func (s *ReachableSetRequest) Bind(r *http.Request) error {
	if !s.Origin.valid() {
		return errors.New("origin needs a node_id or a lat/lon pair")
	}
	return nil
}

// ReachableSetResponse model info
//
//	@Description	every node within radius of the origin with its network distance
type ReachableSetResponse struct {
	NodeID  int32                       `json:"node_id"`
	Reached []datastructure.ReachedNode `json:"reached"`
}

// ReachableSet
//
//	@Summary		every node within radius of an origin on one graph variant
//	@Description	served from the precomputed range cache when it covers the radius, otherwise computed live
//	@Tags			accessibility
//	@Param			body	body	ReachableSetRequest	true	"range request"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/access/range [post]
//	@Success		200	{object}	ReachableSetResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *AccessHandler) ReachableSet(w http.ResponseWriter, r *http.Request) {
	data := &ReachableSetRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, *data) {
		return
	}

	reached, nodeID, err := h.svc.ReachableSet(r.Context(), data.Origin.toLocation(),
		data.Radius, data.Variant)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &ReachableSetResponse{NodeID: nodeID, Reached: reached})
}

// DistanceRequest model info
//
//	@Description	request body for a point-to-point shortest-path weight
type DistanceRequest struct {
	Src     Origin `json:"src"`
	Tgt     Origin `json:"tgt"`
	Variant int    `json:"variant" validate:"gte=0"`
}

func (s *DistanceRequest) Bind(r *http.Request) error {
	if !s.Src.valid() || !s.Tgt.valid() {
		return errors.New("src and tgt need a node_id or a lat/lon pair")
	}
	return nil
}

// DistanceResponse model info
//
//	@Description	shortest-path weight; distance is null and reachable false when no path exists
type DistanceResponse struct {
	SrcNodeID int32    `json:"src_node_id"`
	TgtNodeID int32    `json:"tgt_node_id"`
	Distance  *float64 `json:"distance"`
	Reachable bool     `json:"reachable"`
}

func renderDistance(src, tgt int32, dist float64) *DistanceResponse {
	resp := &DistanceResponse{SrcNodeID: src, TgtNodeID: tgt}
	if !math.IsInf(dist, 1) {
		resp.Distance = &dist
		resp.Reachable = true
	}
	return resp
}

// Distance
//
//	@Summary		shortest-path weight between two origins on one graph variant
//	@Tags			accessibility
//	@Param			body	body	DistanceRequest	true	"distance request"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/access/distance [post]
//	@Success		200	{object}	DistanceResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *AccessHandler) Distance(w http.ResponseWriter, r *http.Request) {
	data := &DistanceRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, *data) {
		return
	}

	dist, srcNode, tgtNode, err := h.svc.Distance(r.Context(),
		data.Src.toLocation(), data.Tgt.toLocation(), data.Variant)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, renderDistance(srcNode, tgtNode, dist))
}

// RouteRequest model info
//
//	@Description	request body for a point-to-point route
type RouteRequest struct {
	Src     Origin `json:"src"`
	Tgt     Origin `json:"tgt"`
	Variant int    `json:"variant" validate:"gte=0"`
}

func (s *RouteRequest) Bind(r *http.Request) error {
	if !s.Src.valid() || !s.Tgt.valid() {
		return errors.New("src and tgt need a node_id or a lat/lon pair")
	}
	return nil
}

// RouteResponse model info
//
//	@Description	node path plus a simplified encoded polyline; empty path when tgt is unreachable
type RouteResponse struct {
	Path      []int32  `json:"path"`
	Polyline  string   `json:"polyline"`
	Distance  *float64 `json:"distance"`
	Reachable bool     `json:"reachable"`
}

// Route
//
//	@Summary		shortest path between two origins with an encoded polyline
//	@Description	the polyline is Douglas-Peucker simplified before encoding
//	@Tags			accessibility
//	@Param			body	body	RouteRequest	true	"route request"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/access/route [post]
//	@Success		200	{object}	RouteResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *AccessHandler) Route(w http.ResponseWriter, r *http.Request) {
	data := &RouteRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, *data) {
		return
	}

	poly, dist, path, err := h.svc.Route(r.Context(),
		data.Src.toLocation(), data.Tgt.toLocation(), data.Variant)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	resp := &RouteResponse{Path: path, Polyline: poly}
	if !math.IsInf(dist, 1) {
		resp.Distance = &dist
		resp.Reachable = true
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// DistanceMatrixRequest model info
//
//	@Description	request body for a sources x targets distance matrix
type DistanceMatrixRequest struct {
	Sources []Origin `json:"sources" validate:"required,min=1,dive"`
	Targets []Origin `json:"targets" validate:"required,min=1,dive"`
	Variant int      `json:"variant" validate:"gte=0"`
}

func (s *DistanceMatrixRequest) Bind(r *http.Request) error {
	if len(s.Sources) == 0 || len(s.Targets) == 0 {
		return errors.New("sources and targets cannot be empty")
	}
	for i := range s.Sources {
		if !s.Sources[i].valid() {
			return fmt.Errorf("source %d needs a node_id or a lat/lon pair", i)
		}
	}
	for i := range s.Targets {
		if !s.Targets[i].valid() {
			return fmt.Errorf("target %d needs a node_id or a lat/lon pair", i)
		}
	}
	return nil
}

// DistanceMatrixResponse model info
//
//	@Description	matrix[i][j] = shortest-path weight source i -> target j, null when unreachable
type DistanceMatrixResponse struct {
	Matrix [][]*float64 `json:"matrix"`
}

func renderDistanceMatrix(matrix [][]float64) *DistanceMatrixResponse {
	out := make([][]*float64, len(matrix))
	for i, row := range matrix {
		out[i] = make([]*float64, len(row))
		for j := range row {
			if !math.IsInf(row[j], 1) {
				d := row[j]
				out[i][j] = &d
			}
		}
	}
	return &DistanceMatrixResponse{Matrix: out}
}

// DistanceMatrix
//
//	@Summary		shortest-path weights for every source-target pair
//	@Tags			accessibility
//	@Param			body	body	DistanceMatrixRequest	true	"distance matrix request"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/access/distance/matrix [post]
//	@Success		200	{object}	DistanceMatrixResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *AccessHandler) DistanceMatrix(w http.ResponseWriter, r *http.Request) {
	data := &DistanceMatrixRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, *data) {
		return
	}

	matrix, err := h.svc.DistanceMatrix(r.Context(), toLocations(data.Sources),
		toLocations(data.Targets), data.Variant)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, renderDistanceMatrix(matrix))
}

// RegisterPOICategoryRequest model info
//
//	@Description	request body registering a named POI category with its query ceilings
type RegisterPOICategoryRequest struct {
	Name      string   `json:"name" validate:"required"`
	MaxDist   float64  `json:"max_dist" validate:"required,gt=0"`
	MaxK      int      `json:"max_k" validate:"required,gt=0"`
	Locations []Origin `json:"locations" validate:"required,min=1,dive"`
}

func (s *RegisterPOICategoryRequest) Bind(r *http.Request) error {
	if len(s.Locations) == 0 {
		return errors.New("locations cannot be empty")
	}
	for i := range s.Locations {
		if !s.Locations[i].valid() {
			return fmt.Errorf("location %d needs a node_id or a lat/lon pair", i)
		}
	}
	return nil
}

// RegisterResponse model info
//
//	@Description	acknowledgement for a registration call
type RegisterResponse struct {
	Status string `json:"status"`
}

// RegisterPOICategory
//
//	@Summary		register a POI category; position i in locations becomes POI sequence index i
//	@Description	re-registration under the same name overwrites the category; maxDist and maxK become the ceilings later nearest-POI queries must respect
//	@Tags			accessibility
//	@Param			body	body	RegisterPOICategoryRequest	true	"POI category registration"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/access/poi-categories [post]
//	@Success		200	{object}	RegisterResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *AccessHandler) RegisterPOICategory(w http.ResponseWriter, r *http.Request) {
	data := &RegisterPOICategoryRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, *data) {
		return
	}

	if err := h.svc.RegisterPOICategory(r.Context(), data.Name, data.MaxDist,
		data.MaxK, toLocations(data.Locations)); err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &RegisterResponse{Status: "registered"})
}

// RegisterVariableRequest model info
//
//	@Description	request body registering a variable category, one value per location
type RegisterVariableRequest struct {
	Name      string    `json:"name" validate:"required"`
	Locations []Origin  `json:"locations" validate:"required,min=1,dive"`
	Values    []float64 `json:"values" validate:"required,min=1"`
}

func (s *RegisterVariableRequest) Bind(r *http.Request) error {
	if len(s.Locations) == 0 {
		return errors.New("locations cannot be empty")
	}
	if len(s.Locations) != len(s.Values) {
		return errors.New("locations and values must have the same length")
	}
	for i := range s.Locations {
		if !s.Locations[i].valid() {
			return fmt.Errorf("location %d needs a node_id or a lat/lon pair", i)
		}
	}
	return nil
}

// RegisterVariable
//
//	@Summary		register a variable category for aggregation queries
//	@Description	values of locations snapping to the same node are co-located and all participate in aggregations
//	@Tags			accessibility
//	@Param			body	body	RegisterVariableRequest	true	"variable registration"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/access/variables [post]
//	@Success		200	{object}	RegisterResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		404	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *AccessHandler) RegisterVariable(w http.ResponseWriter, r *http.Request) {
	data := &RegisterVariableRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, *data) {
		return
	}

	if err := h.svc.RegisterVariable(r.Context(), data.Name,
		toLocations(data.Locations), data.Values); err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &RegisterResponse{Status: "registered"})
}

// PrecomputeRequest model info
//
//	@Description	request body for precomputing the range cache of one graph variant
type PrecomputeRequest struct {
	Radius  float64 `json:"radius" validate:"required,gt=0"`
	Variant int     `json:"variant" validate:"gte=0"`
	Persist bool    `json:"persist"`
}

func (s *PrecomputeRequest) Bind(r *http.Request) error {
	return nil
}

// Precompute
//
//	@Summary		precompute reachable sets for every node of one graph variant
//	@Description	swaps the variant's range cache atomically; with persist the computed sets are also written to the range store for warm starts
//	@Tags			accessibility
//	@Param			body	body	PrecomputeRequest	true	"precompute request"
//	@Accept			application/json
//	@Produce		application/json
//	@Router			/access/precompute [post]
//	@Success		200	{object}	RegisterResponse
//	@Failure		400	{object}	ErrResponse
//	@Failure		500	{object}	ErrResponse
func (h *AccessHandler) Precompute(w http.ResponseWriter, r *http.Request) {
	data := &PrecomputeRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}
	if !validateRequest(w, r, *data) {
		return
	}

	if err := h.svc.Precompute(r.Context(), data.Radius, data.Variant, data.Persist); err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, &RegisterResponse{Status: "precomputed"})
}

// renderServiceError maps domain error kinds onto HTTP statuses.
func renderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch server.GetErrorCode(err) {
	case server.ErrBadParamInput, server.ErrInvalidNode,
		server.ErrOutOfBoundsQuery, server.ErrInvalidAggregation:
		render.Render(w, r, ErrInvalidRequest(err))
	case server.ErrNotFound:
		render.Render(w, r, ErrNotFoundRend(err))
	default:
		render.Render(w, r, ErrInternalServerErrorRend(err))
	}
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrNotFoundRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 404,
		StatusText:     "Resource not found.",
		ErrorText:      err.Error(),
	}
}

func ErrInternalServerErrorRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 500,
		StatusText:     "Internal server error.",
		ErrorText:      err.Error(),
	}
}

// ErrResponse model info
//
//	@Description	error response body
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText    string   `json:"status"`          // user-level status message
	AppCode       int64    `json:"code,omitempty"`  // application-specific error code
	ErrorText     string   `json:"error,omitempty"` // application-level error message, for debugging
	ErrValidation []string `json:"validation,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	validatorErrs := err.(validator.ValidationErrors)
	for _, e := range validatorErrs {
		translatedErr := fmt.Errorf(e.Translate(trans))
		errs = append(errs, translatedErr)
	}
	return errs
}

func ErrValidation(err error, errV []error) render.Renderer {
	vv := []string{}
	for _, v := range errV {
		vv = append(vv, v.Error())
	}
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: 400,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
		ErrValidation:  vv,
	}
}
