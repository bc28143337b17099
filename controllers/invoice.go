package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Invoice returns the invoice written when the appointment completed.
func (ac *AppointmentController) Invoice(c *gin.Context) {
	companyID, ok := tenantID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	invoice, err := ac.reader.InvoiceByAppointment(c.Request.Context(), companyID, id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}
