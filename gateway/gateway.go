package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/filecoin-project/go-state-types/big"
	"github.com/gin-contrib/location"
	"github.com/gin-gonic/gin"
	logger "github.com/ipfs/go-log/v2"
	"github.com/rs/cors"
	gincors "github.com/rs/cors/wrapper/gin"
	"github.com/textileio/marketgate/health"
	"github.com/textileio/marketgate/market"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 1000
)

var log = logger.Logger("gateway")

// Views is the read-only market query surface.
type Views interface {
	GetSupplySales() (uint64, error)
	GetSupplyUses() (uint64, error)
	GetSupplyByOwnerID(ownerID string) (uint64, error)
	GetSupplyByContractID(contractID string) (uint64, error)
	GetSales(from, limit uint64) ([]market.Sale, error)
	GetUses(from, limit uint64) ([]market.UseOffer, error)
	GetSalesByOwnerID(ownerID string, from, limit uint64) ([]market.Sale, error)
	GetSalesByContractID(contractID string, from, limit uint64) ([]market.Sale, error)
	GetSale(contractID, tokenID string) (market.Sale, error)
	GetUse(contractID, tokenID string) (market.UseOffer, error)
	GetResolution(id string) (market.Resolution, error)
	StorageMinimumBalance() big.Int
	StorageBalanceOf(account string) (big.Int, error)
}

// Gateway provides HTTP-based read access to the market.
type Gateway struct {
	addr   string
	server *http.Server
	views  Views
	health *health.Module
}

// NewGateway returns a new gateway. hm is optional.
func NewGateway(addr string, views Views, hm *health.Module) *Gateway {
	return &Gateway{
		addr:   addr,
		views:  views,
		health: hm,
	}
}

// Start the gateway.
func (g *Gateway) Start() {
	g.server = &http.Server{
		Addr:    g.addr,
		Handler: g.router(),
	}

	errc := make(chan error)
	go func() {
		errc <- g.server.ListenAndServe()
		close(errc)
	}()
	go func() {
		for {
			select {
			case err, ok := <-errc:
				if err != nil {
					if err == http.ErrServerClosed {
						return
					}
					log.Errorf("gateway error: %s", err)
				}
				if !ok {
					log.Info("gateway was shutdown")
					return
				}
			}
		}
	}()
	log.Infof("gateway listening at %s", g.server.Addr)
}

// Addr returns the gateway's address.
func (g *Gateway) Addr() string {
	return g.server.Addr
}

// Stop the gateway.
func (g *Gateway) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := g.server.Shutdown(ctx); err != nil {
		log.Errorf("error shutting down gateway: %s", err)
		return err
	}
	return nil
}

func (g *Gateway) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(location.Default())

	options := cors.Options{}
	router.Use(gincors.New(options))

	router.GET("/health", g.healthHandler)

	router.GET("/supply", g.supplyHandler)
	router.GET("/sales", g.salesHandler)
	router.GET("/sales/owner/:owner", g.salesByOwnerHandler)
	router.GET("/sales/contract/:contract", g.salesByContractHandler)
	router.GET("/sale/:contract/:token", g.saleHandler)
	router.GET("/uses", g.usesHandler)
	router.GET("/use/:contract/:token", g.useHandler)
	router.GET("/resolutions/:id", g.resolutionHandler)
	router.GET("/storage/:account", g.storageHandler)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%s not found", c.Request.URL.Path)})
	})
	return router
}

func (g *Gateway) supplyHandler(c *gin.Context) {
	var (
		n   uint64
		err error
	)
	switch {
	case c.Query("owner") != "":
		n, err = g.views.GetSupplyByOwnerID(c.Query("owner"))
	case c.Query("contract") != "":
		n, err = g.views.GetSupplyByContractID(c.Query("contract"))
	default:
		var uses uint64
		if n, err = g.views.GetSupplySales(); err == nil {
			if uses, err = g.views.GetSupplyUses(); err == nil {
				c.JSON(http.StatusOK, gin.H{"sales": n, "uses": uses})
				return
			}
		}
	}
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": n})
}

func (g *Gateway) salesHandler(c *gin.Context) {
	from, limit, ok := pagination(c)
	if !ok {
		return
	}
	sales, err := g.views.GetSales(from, limit)
	render(c, sales, err)
}

func (g *Gateway) salesByOwnerHandler(c *gin.Context) {
	from, limit, ok := pagination(c)
	if !ok {
		return
	}
	sales, err := g.views.GetSalesByOwnerID(c.Param("owner"), from, limit)
	render(c, sales, err)
}

func (g *Gateway) salesByContractHandler(c *gin.Context) {
	from, limit, ok := pagination(c)
	if !ok {
		return
	}
	sales, err := g.views.GetSalesByContractID(c.Param("contract"), from, limit)
	render(c, sales, err)
}

func (g *Gateway) saleHandler(c *gin.Context) {
	sale, err := g.views.GetSale(c.Param("contract"), c.Param("token"))
	render(c, sale, err)
}

func (g *Gateway) usesHandler(c *gin.Context) {
	from, limit, ok := pagination(c)
	if !ok {
		return
	}
	uses, err := g.views.GetUses(from, limit)
	render(c, uses, err)
}

func (g *Gateway) useHandler(c *gin.Context) {
	use, err := g.views.GetUse(c.Param("contract"), c.Param("token"))
	render(c, use, err)
}

func (g *Gateway) resolutionHandler(c *gin.Context) {
	r, err := g.views.GetResolution(c.Param("id"))
	render(c, r, err)
}

func (g *Gateway) storageHandler(c *gin.Context) {
	balance, err := g.views.StorageBalanceOf(c.Param("account"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"account":         c.Param("account"),
		"balance":         balance,
		"minimum_balance": g.views.StorageMinimumBalance(),
	})
}

// pagination parses the from and limit query params. An explicit limit of
// zero yields an empty page.
func pagination(c *gin.Context) (uint64, uint64, bool) {
	from, err := strconv.ParseUint(c.DefaultQuery("from", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
		return 0, 0, false
	}
	limit, err := strconv.ParseUint(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return 0, 0, false
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return from, limit, true
}

func render(c *gin.Context, v interface{}, err error) {
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func renderError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, market.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, market.ErrInvalidInput):
		status = http.StatusBadRequest
	default:
		log.Errorf("serving %s: %s", c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (g *Gateway) healthHandler(c *gin.Context) {
	if g.health == nil {
		c.Writer.WriteHeader(http.StatusNoContent)
		return
	}
	r, err := g.health.Check(c.Request.Context())
	if err != nil {
		log.Errorf("checking health: %s", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": r.Status.String()})
		return
	}
	if r.Status != health.Ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": r.Status.String(), "messages": r.Messages})
		return
	}
	c.Writer.WriteHeader(http.StatusNoContent)
}
