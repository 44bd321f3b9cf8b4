package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/database"
	"github.com/stemsi/exstem-proctor/internal/logger"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/repository"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// Seeds a demo class of students and one open exam for them.
func main() {
	var (
		grade     string
		className string
		semester  string
		students  int
		questions int
		duration  int
	)
	flag.StringVar(&grade, "grade", "10", "Exam grade level")
	flag.StringVar(&className, "class", "10 IPA 1", "Class name of the seeded students")
	flag.StringVar(&semester, "semester", model.SemesterOdd, "Exam semester (ganjil or genap)")
	flag.IntVar(&students, "students", 30, "Number of students")
	flag.IntVar(&questions, "questions", 20, "Number of questions")
	flag.IntVar(&duration, "duration", 60, "Exam duration in minutes")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	studentRepo := repository.NewStudentRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	examService := service.NewExamService(examRepo, rdb, log)

	names := []string{
		"Budi Santoso", "Siti Aminah", "Andi Pratama", "Rina Wati", "Joko Susilo",
		"Ayu Lestari", "Dodi Kusuma", "Eka Putri", "Fahri Hamzah", "Gita Savitri",
	}

	fmt.Printf("=== Seeding %d students in %s ===\n", students, className)
	created := 0
	for i := 0; i < students; i++ {
		s := &model.Student{
			NIS:       fmt.Sprintf("%s%03d", grade, i+1),
			Name:      fmt.Sprintf("%s %d", names[i%len(names)], i/len(names)+1),
			ClassName: className,
		}
		if err := studentRepo.Upsert(ctx, s); err != nil {
			fmt.Printf("Error creating student %s: %v\n", s.NIS, err)
			continue
		}
		created++
	}
	fmt.Printf("Upserted %d/%d students.\n", created, students)

	deadline := time.Now().Add(7 * 24 * time.Hour)
	exam := &model.Exam{
		Title:              fmt.Sprintf("Ujian Demo Kelas %s", grade),
		Subject:            "Matematika",
		Semester:           semester,
		Grade:              grade,
		DurationMinutes:    duration,
		RandomizeQuestions: true,
		Deadline:           &deadline,
		Rules:              "Jangan berpindah tab atau aplikasi selama ujian berlangsung.",
	}
	if err := examRepo.Create(ctx, exam); err != nil {
		log.Fatal().Err(err).Msg("Failed to create exam")
	}

	qs := make([]model.Question, questions)
	for i := range qs {
		a, b := i+2, i+3
		qs[i] = model.Question{
			ExamID:   exam.ID,
			Prompt:   fmt.Sprintf("Berapakah %d x %d?", a, b),
			OrderNum: i + 1,
			Options: []string{
				fmt.Sprint(a * b),
				fmt.Sprint(a*b + 1),
				fmt.Sprint(a + b),
				fmt.Sprint(a*b - 1),
			},
			CorrectIndex: 0,
		}
	}
	n, err := questionRepo.CreateBatch(ctx, qs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create questions")
	}

	if err := examService.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate exam list cache")
	}

	fmt.Printf("\nSeed completed! Exam %s with %d questions, first NIS %s001.\n", exam.ID, n, grade)
}
