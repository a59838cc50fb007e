package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"quiz-client/internal/quiz"
	"quiz-client/internal/quizapi"
)

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  help")
	fmt.Fprintln(out, "  login <username|email>")
	fmt.Fprintln(out, "  register")
	fmt.Fprintln(out, "  logout")
	fmt.Fprintln(out, "  whoami")
	fmt.Fprintln(out, "  quizzes")
	fmt.Fprintln(out, "  signup <quiz_id>")
	fmt.Fprintln(out, "  cancel <quiz_id>")
	fmt.Fprintln(out, "  take <quiz_id>")
	fmt.Fprintln(out, "  results <quiz_id>")
	fmt.Fprintln(out, "  history")
	fmt.Fprintln(out, "  receipts [limit]")
	fmt.Fprintln(out, "  exit")
}

func printTakeHelp(out io.Writer) {
	fmt.Fprintln(out, "While taking a quiz:")
	fmt.Fprintln(out, "  1-4      select an option")
	fmt.Fprintln(out, "  c        clear the selected option")
	fmt.Fprintln(out, "  n / p    next / previous question")
	fmt.Fprintln(out, "  v        show the current question again")
	fmt.Fprintln(out, "  t        show the time remaining")
	fmt.Fprintln(out, "  s        submit")
	fmt.Fprintln(out, "  q        leave without submitting")
}

func parseQuizID(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return value, nil
}

func parsePositiveLimit(args []string, index int, defaultValue int) (int, error) {
	if len(args) <= index {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(args[index])
	if err != nil || value <= 0 {
		return 0, errors.New("must be a positive integer")
	}
	return value, nil
}

func describeClientError(err error, serverURL string) error {
	if errors.Is(err, quizapi.ErrNetwork) {
		return fmt.Errorf("quiz service unavailable at %s", serverURL)
	}
	return err
}

func newLineScanner(in io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	return scanner
}

func printScoreSummary(out io.Writer, summary quiz.ScoreSummary) {
	fmt.Fprintf(out, "Results: %s\n", orDash(summary.QuizName))
	fmt.Fprintf(out, "Score: %d/%d (%.1f%%)\n", summary.UserScore, summary.TotalQuizScore, summary.Percent())
	fmt.Fprintf(out, "Correct answers: %d/%d\n", summary.CorrectAnswers, summary.TotalQuestions)
	fmt.Fprintf(out, "Date: %s  Duration: %s\n", formatDate(summary.DateOfQuiz), orDash(quiz.FormatDuration(summary.TimeDuration)))
}

func printQuestionResult(out io.Writer, number int, result quiz.QuestionResult) {
	fmt.Fprintf(out, "%d. [%s] %s (%s)\n", number, result.Status(), result.Statement, pointsLabel(result.Points))
	fmt.Fprintf(out, "   your answer:    %s\n", optionLabel(result.Options, result.UserAnswer))
	fmt.Fprintf(out, "   correct answer: %s\n", optionLabel(result.Options, result.CorrectOption))
}

func optionLabel(options [quiz.OptionCount]string, option quiz.Option) string {
	if !option.Valid() {
		return "-"
	}
	return fmt.Sprintf("%d. %s", option, options[option-1])
}

func pointsLabel(points int) string {
	return pluralize(points, "point")
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
