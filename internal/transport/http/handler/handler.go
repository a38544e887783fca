package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"carbuy-api/internal/transport/http/ez"
)

// 挂载顺序：数值越小越先挂
const (
	priorityAccount   = 10
	priorityListing   = 20
	priorityFavourite = 30
	priorityAdmin     = 100
)

// pathID 解析 :id 路径参数；非法值按 notFound 返回
func pathID(c *gin.Context, name string, notFound error) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		if notFound != nil {
			return 0, notFound
		}
		return 0, ez.BadRequest("invalid " + name)
	}
	return uint(id), nil
}

type messageOut struct {
	Message string `json:"message"`
}
