package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/growsinofficial/kyc-sub000/internal/models/request_models"
	"github.com/growsinofficial/kyc-sub000/internal/services"
	"github.com/growsinofficial/kyc-sub000/pkg/utils"
)

type AccountController struct {
	accountService services.IAccountService
}

func NewAccountController(accountService services.IAccountService) *AccountController {
	return &AccountController{accountService: accountService}
}

func (a *AccountController) Register(c *gin.Context) {
	var request request_models.RegisterRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	resp, err := a.accountService.Register(c.Request.Context(), request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, resp, "Account created")
}

func (a *AccountController) Login(c *gin.Context) {
	var request request_models.LoginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	resp, err := a.accountService.Login(c.Request.Context(), request)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, resp, "Logged in")
}
