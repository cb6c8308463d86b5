package domain

import "fmt"

// AdvisoryCode 非致命提示代码
type AdvisoryCode string

// AdvisoryFellerCondition is raised when 2ab < σ² for CIR: the continuous
// process may touch zero, the discretized one still runs.
const AdvisoryFellerCondition AdvisoryCode = "FELLER_CONDITION_WARNING"

// Advisory 随成功结果一起返回的提示，不是错误
type Advisory struct {
	Code    AdvisoryCode `json:"code"`
	Message string       `json:"message"`
}

func newFellerWarning(p ModelParameters) Advisory {
	return Advisory{
		Code: AdvisoryFellerCondition,
		Message: fmt.Sprintf("Feller condition 2ab >= sigma^2 violated: 2ab=%g < sigma^2=%g",
			2*p.a*p.b, p.sigma*p.sigma),
	}
}

// HasAdvisory 判断提示列表中是否包含指定代码
func HasAdvisory(advisories []Advisory, code AdvisoryCode) bool {
	for _, a := range advisories {
		if a.Code == code {
			return true
		}
	}
	return false
}
