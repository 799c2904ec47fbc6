package domain

// FixedQuiz returns the curated ten-question practice exam in authored order.
// A fresh slice is returned on every call so callers cannot mutate the shared set.
func FixedQuiz() []Question {
	out := make([]Question, len(fixedQuiz))
	for i, q := range fixedQuiz {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

var fixedQuiz = []Question{
	{
		ID:          "1",
		Prompt:      "Qual é a velocidade máxima permitida em vias urbanas para veículos de passeio?",
		Options:     []string{"40 km/h", "50 km/h", "60 km/h", "70 km/h"},
		Correct:     2,
		Explanation: "Em vias urbanas, a velocidade máxima para veículos de passeio é de 60 km/h, conforme estabelecido pelo Código de Trânsito Brasileiro.",
		Category:    "Legislação",
		Active:      true,
	},
	{
		ID:          "2",
		Prompt:      "O que significa a placa de trânsito circular com fundo azul e símbolo branco?",
		Options:     []string{"Proibição", "Advertência", "Regulamentação", "Indicação"},
		Correct:     2,
		Explanation: "Placas circulares com fundo azul e símbolos brancos são de regulamentação, indicando uma obrigação ou restrição.",
		Category:    "Sinalização",
		Active:      true,
	},
	{
		ID:     "3",
		Prompt: "Em caso de aquaplanagem, o condutor deve:",
		Options: []string{
			"Acelerar para sair rapidamente da água",
			"Frear bruscamente",
			"Manter o volante firme e tirar o pé do acelerador",
			"Virar o volante rapidamente",
		},
		Correct:     2,
		Explanation: "Na aquaplanagem, deve-se manter o volante firme, tirar o pé do acelerador gradualmente e evitar movimentos bruscos.",
		Category:    "Direção Defensiva",
		Active:      true,
	},
	{
		ID:          "4",
		Prompt:      "A distância mínima de seguimento em rodovias é:",
		Options:     []string{"2 segundos", "3 segundos", "4 segundos", "5 segundos"},
		Correct:     1,
		Explanation: "A regra dos 3 segundos é recomendada para manter distância segura em condições normais de tráfego.",
		Category:    "Direção Defensiva",
		Active:      true,
	},
	{
		ID:          "5",
		Prompt:      "Qual documento é obrigatório para conduzir veículos?",
		Options:     []string{"RG", "CPF", "CNH", "Carteira de trabalho"},
		Correct:     2,
		Explanation: "A Carteira Nacional de Habilitação (CNH) é o documento obrigatório para conduzir veículos automotores.",
		Category:    "Legislação",
		Active:      true,
	},
	{
		ID:          "6",
		Prompt:      "O condutor que dirigir sob efeito de álcool comete:",
		Options:     []string{"Infração leve", "Infração média", "Infração grave", "Crime"},
		Correct:     3,
		Explanation: "Dirigir sob efeito de álcool é considerado crime pelo Código de Trânsito Brasileiro.",
		Category:    "Legislação",
		Active:      true,
	},
	{
		ID:          "7",
		Prompt:      "Em uma curva, o veículo tende a:",
		Options:     []string{"Acelerar", "Desacelerar", "Seguir em linha reta", "Inclinar para dentro"},
		Correct:     2,
		Explanation: "Devido à inércia, o veículo tende a seguir em linha reta, exigindo força no volante para fazer a curva.",
		Category:    "Mecânica",
		Active:      true,
	},
	{
		ID:          "8",
		Prompt:      "A luz de freio deve estar sempre:",
		Options:     []string{"Apagada", "Acesa", "Funcionando", "Piscando"},
		Correct:     2,
		Explanation: "A luz de freio deve estar sempre funcionando para sinalizar aos demais condutores quando o veículo está freando.",
		Category:    "Mecânica",
		Active:      true,
	},
	{
		ID:     "9",
		Prompt: "Ao se aproximar de uma faixa de pedestres, o condutor deve:",
		Options: []string{
			"Acelerar para passar rapidamente",
			"Buzinar para avisar os pedestres",
			"Reduzir a velocidade e parar se necessário",
			"Manter a velocidade",
		},
		Correct:     2,
		Explanation: "O condutor deve sempre reduzir a velocidade ao se aproximar de faixas de pedestres e parar quando necessário.",
		Category:    "Direção Defensiva",
		Active:      true,
	},
	{
		ID:          "10",
		Prompt:      "O prazo para renovação da CNH é de:",
		Options:     []string{"3 anos", "5 anos", "10 anos", "Não há prazo"},
		Correct:     1,
		Explanation: "A CNH deve ser renovada a cada 5 anos para condutores até 50 anos, e a cada 3 anos para condutores acima de 50 anos.",
		Category:    "Legislação",
		Active:      true,
	},
}
